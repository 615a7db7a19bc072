package category

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/testutil"
)

func repos(t *testing.T) map[string]Repo {
	t.Helper()
	g, err := NewGormRepo(testutil.DB(t))
	require.NoError(t, err)
	return map[string]Repo{"memory": NewMemoryRepo(), "gorm": g}
}

func TestRepo_CRUD(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			c, err := repo.Create(ctx, Category{Name: "Sample", Color: "#ffccaa"})
			require.NoError(t, err)
			require.NotNil(t, c.Active)
			assert.True(t, *c.Active)

			_, err = repo.Create(ctx, Category{Name: "alpha"})
			require.NoError(t, err)

			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "alpha", list[0].Name)

			renamed, inactive := "Renamed", false
			color := "#aabbcc"
			up, err := repo.Update(ctx, c.ID, Patch{Name: &renamed, Color: &color, Active: &inactive})
			require.NoError(t, err)
			assert.Equal(t, "Renamed", up.Name)
			assert.Equal(t, "#aabbcc", up.Color)
			assert.False(t, *up.Active)

			got, err := repo.FindByName(ctx, "Renamed")
			require.NoError(t, err)
			assert.Equal(t, c.ID, got.ID)
			assert.False(t, *got.Active)

			_, err = repo.Create(ctx, Category{Name: " "})
			assert.ErrorIs(t, err, ErrInvalidCategory)

			require.NoError(t, repo.Delete(ctx, c.ID))
			_, err = repo.Get(ctx, c.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestService_DeleteUnlinksQuests(t *testing.T) {
	ctx := context.Background()
	quests := quest.NewMemoryRepo()
	svc := NewService(NewMemoryRepo(), quests, nil)

	c, err := svc.Ensure(ctx, "Work", "#000000")
	require.NoError(t, err)
	again, err := svc.Ensure(ctx, "Work", "#ffffff")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	q, err := quests.Create(ctx, quest.Quest{Name: "Report", DueDate: calendar.MustParse("2025-03-10"), CategoryID: &c.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID))

	got, err := quests.Get(ctx, q.ID)
	require.NoError(t, err, "quests survive their category")
	assert.Nil(t, got.CategoryID)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), ErrNotFound)
}
