package rulesdoc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magget135/Minimal-Quest-Log/internal/testutil"
)

func TestRepo_PutReplacesSingleDoc(t *testing.T) {
	g, err := NewGormRepo(testutil.DB(t))
	require.NoError(t, err)

	for name, repo := range map[string]Repo{"memory": NewMemoryRepo(), "gorm": g} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			d, err := repo.Get(ctx)
			require.NoError(t, err)
			assert.Nil(t, d)

			first, err := repo.Put(ctx, "1. Complete daily quests")
			require.NoError(t, err)
			second, err := repo.Put(ctx, "2. Redeem rewards wisely")
			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID)

			d, err = repo.Get(ctx)
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, "2. Redeem rewards wisely", d.Content)
		})
	}
}

func TestHandler_GetBeforePutIsNull(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewMemoryRepo()).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/rules", strings.NewReader(`{"content":"be kind"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"be kind"`)
}
