package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/config"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
)

func TestOpen_SqlitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "nested", "questlog.db")}

	s, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	q, err := s.Quests.Create(ctx, quest.Quest{Name: "Persist me", DueDate: calendar.MustParse("2025-04-01")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Quests.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persist me", got.Name)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(config.StorageConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.Nil(t, s.DB)
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.StorageConfig{Driver: "mongo"}, nil)
	assert.Error(t, err)
}
