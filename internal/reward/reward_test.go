package reward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magget135/Minimal-Quest-Log/internal/testutil"
)

type fixedXP int

func (f fixedXP) TotalXP(context.Context) (int, error) { return int(f), nil }

func repos(t *testing.T) map[string]Repo {
	t.Helper()
	g, err := NewGormRepo(testutil.DB(t))
	require.NoError(t, err)
	return map[string]Repo{"memory": NewMemoryRepo(), "gorm": g}
}

func TestService_StoreSeedsOnce(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(repo, fixedXP(0), DefaultStore(), nil)

			items, err := svc.Store(ctx)
			require.NoError(t, err)
			require.Len(t, items, 4)
			assert.Equal(t, "1 Hour of Movie", items[0].Name)
			assert.Equal(t, "$1 Credit", items[1].Name)
			assert.Equal(t, 25, items[1].XPCost)

			require.NoError(t, svc.Delete(ctx, items[0].ID))
			items, err = svc.Store(ctx)
			require.NoError(t, err)
			assert.Len(t, items, 3, "a non-empty store is not reseeded")
		})
	}
}

func TestService_Upsert(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(repo, fixedXP(0), nil, nil)

			created, err := svc.Upsert(ctx, StoreItem{Name: " Pizza night ", XPCost: 200})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, "Pizza night", created.Name)

			updated, err := svc.Upsert(ctx, StoreItem{ID: created.ID, Name: "Pizza night", XPCost: 150})
			require.NoError(t, err)
			assert.Equal(t, 150, updated.XPCost)

			got, err := repo.GetStore(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 150, got.XPCost)

			_, err = svc.Upsert(ctx, StoreItem{ID: "missing", Name: "x"})
			assert.ErrorIs(t, err, ErrRewardNotFound)
			_, err = svc.Upsert(ctx, StoreItem{Name: " "})
			assert.ErrorIs(t, err, ErrInvalidReward)
			assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrRewardNotFound)
		})
	}
}

func TestService_RedeemAndUse(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(repo, fixedXP(120), DefaultStore(), nil)
			_, err := svc.Store(ctx)
			require.NoError(t, err)

			inv, err := svc.Redeem(ctx, RedeemInput{RewardName: "1 Hour of Movie"})
			require.NoError(t, err)
			assert.Equal(t, "1 Hour of Movie", inv.RewardName)
			assert.Equal(t, 100, inv.XPCost)
			assert.False(t, inv.Used)

			sum, err := svc.Summary(ctx)
			require.NoError(t, err)
			assert.Equal(t, Summary{TotalEarned: 120, TotalSpent: 100, Balance: 20}, sum)

			_, err = svc.Redeem(ctx, RedeemInput{RewardName: "$1 Credit"})
			assert.ErrorIs(t, err, ErrNotEnoughXP)
			_, err = svc.Redeem(ctx, RedeemInput{RewardName: "Yacht"})
			assert.ErrorIs(t, err, ErrRewardNotFound)
			_, err = svc.Redeem(ctx, RedeemInput{})
			assert.ErrorIs(t, err, ErrRewardNotFound)

			log, err := svc.Log(ctx)
			require.NoError(t, err)
			require.Len(t, log, 1)
			assert.Equal(t, 100, log[0].XPCost)

			used, err := svc.Use(ctx, inv.ID)
			require.NoError(t, err)
			assert.True(t, used.Used)
			require.NotNil(t, used.UsedAt)

			_, err = svc.Use(ctx, inv.ID)
			assert.ErrorIs(t, err, ErrAlreadyUsed)
			_, err = svc.Use(ctx, "missing")
			assert.ErrorIs(t, err, ErrInventoryNotFound)
		})
	}
}

func TestService_ConcurrentRedeemCannotOverspend(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo(), fixedXP(100), DefaultStore(), nil)
	_, err := svc.Store(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Redeem(ctx, RedeemInput{RewardName: "$1 Credit"})
		}()
	}
	wg.Wait()

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, sum.TotalSpent)
	assert.Zero(t, sum.Balance)
}

func TestHandler_RedeemErrors(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewService(NewMemoryRepo(), fixedXP(10), DefaultStore(), nil)).Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/rewards/store", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []StoreItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.NotEmpty(t, items)

	req = httptest.NewRequest(http.MethodPost, "/api/rewards/redeem", strings.NewReader(`{"reward_id":"`+items[0].ID+`"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Not enough XP to redeem"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/rewards/use/nope", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/xp/summary", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"total_earned":10,"total_spent":0,"balance":10}`, rec.Body.String())
}
