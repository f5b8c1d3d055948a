package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/model"
)

// fakeCatalog 内存版价目后端，记录各接口命中次数。
type fakeCatalog struct {
	mu     sync.Mutex
	prices []model.PricePackage
	nextID int64
	broken bool

	adminListCalls int
	createCalls    int
	updateCalls    int
	deleteCalls    int
}

func (f *fakeCatalog) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/diamond-prices", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"prices": f.prices})
	})
	mux.HandleFunc("/admin/diamond-prices", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.broken {
			http.Error(w, `{"error":"db down"}`, http.StatusInternalServerError)
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.adminListCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{"prices": f.prices})
		case http.MethodPost:
			f.createCalls++
			var req struct {
				GameName   string  `json:"game_name"`
				ServerName string  `json:"server_name"`
				Amount     int64   `json:"amount"`
				Price      float64 `json:"price"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.nextID++
			p := model.PricePackage{
				ID:         model.FlexInt(f.nextID),
				GameName:   req.GameName,
				ServerName: req.ServerName,
				Amount:     model.FlexInt(req.Amount),
				Price:      req.Price,
			}
			f.prices = append(f.prices, p)
			_ = json.NewEncoder(w).Encode(p)
		case http.MethodPut:
			f.updateCalls++
			var req struct {
				ID         int64   `json:"id"`
				GameName   string  `json:"game_name"`
				ServerName string  `json:"server_name"`
				Amount     int64   `json:"amount"`
				Price      float64 `json:"price"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			for i := range f.prices {
				if f.prices[i].ID.Int64() == req.ID {
					f.prices[i].GameName = req.GameName
					f.prices[i].ServerName = req.ServerName
					f.prices[i].Amount = model.FlexInt(req.Amount)
					f.prices[i].Price = req.Price
					_ = json.NewEncoder(w).Encode(f.prices[i])
					return
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "price not found"})
		case http.MethodDelete:
			f.deleteCalls++
			var req struct {
				ID int64 `json:"id"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			out := f.prices[:0]
			for _, p := range f.prices {
				if p.ID.Int64() != req.ID {
					out = append(out, p)
				}
			}
			f.prices = out
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "deleted"})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAccessor(t *testing.T, f *fakeCatalog) *Accessor {
	t.Helper()
	return NewAccessor(backend.New(f.server(t).URL))
}

func TestValidationFailsLocallyWithoutNetwork(t *testing.T) {
	f := &fakeCatalog{}
	a := newAccessor(t, f)
	ctx := context.Background()

	_, err := a.Create(ctx, "ML", "Asia", -1, 5000)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = a.Create(ctx, "ML", "Asia", 100, 0)
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = a.Create(ctx, "ML", "Asia", 100, -3)
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = a.Create(ctx, "", "Asia", 100, 5000)
	require.ErrorIs(t, err, ErrMissingGameServer)
	_, err = a.Update(ctx, 1, "ML", " ", 100, 5000)
	require.ErrorIs(t, err, ErrMissingGameServer)

	// 本地校验失败时一个请求都不能发出去
	f.mu.Lock()
	require.Equal(t, 0, f.createCalls+f.updateCalls+f.adminListCalls)
	f.mu.Unlock()
}

func TestCreateZeroAmountPassIsValid(t *testing.T) {
	// amount 0 是周卡哨兵，必须能通过校验创建
	f := &fakeCatalog{}
	a := newAccessor(t, f)

	created, err := a.Create(context.Background(), "Mobile Legends", "Asia", 0, 8000)
	require.NoError(t, err)
	require.Equal(t, model.KindWeeklyPass, created.Kind())
}

func TestMutationsReloadFullCatalog(t *testing.T) {
	f := &fakeCatalog{}
	a := newAccessor(t, f)
	ctx := context.Background()

	created, err := a.Create(ctx, "Mobile Legends", "Asia", 100, 5000)
	require.NoError(t, err)
	f.mu.Lock()
	require.Equal(t, 1, f.createCalls)
	require.Equal(t, 1, f.adminListCalls) // 每次成功写操作后整体重拉
	f.mu.Unlock()

	_, err = a.Update(ctx, created.ID.Int64(), "Mobile Legends", "Asia", 100, 5500)
	require.NoError(t, err)
	f.mu.Lock()
	require.Equal(t, 2, f.adminListCalls)
	f.mu.Unlock()

	prices, loaded := a.Prices()
	require.True(t, loaded)
	require.Len(t, prices, 1)
	require.Equal(t, 5500.0, prices[0].Price)

	require.NoError(t, a.Delete(ctx, created.ID.Int64()))
	f.mu.Lock()
	require.Equal(t, 1, f.deleteCalls)
	require.Equal(t, 3, f.adminListCalls)
	f.mu.Unlock()
	prices, _ = a.Prices()
	require.Empty(t, prices)
}

func TestRefreshFailureKeepsLastGoodCatalog(t *testing.T) {
	f := &fakeCatalog{}
	a := newAccessor(t, f)
	ctx := context.Background()

	_, err := a.Create(ctx, "Mobile Legends", "Asia", 100, 5000)
	require.NoError(t, err)
	prices, loaded := a.Prices()
	require.True(t, loaded)
	require.Len(t, prices, 1)

	f.mu.Lock()
	f.broken = true
	f.mu.Unlock()

	require.Error(t, a.RefreshAdmin(ctx))
	// 刷新失败时保留上一份好数据
	prices, loaded = a.Prices()
	require.True(t, loaded)
	require.Len(t, prices, 1)
}

func TestGroupStorefront(t *testing.T) {
	prices := []model.PricePackage{
		{ID: 1, Amount: 500, Price: 20000},
		{ID: 2, Amount: 0, Price: 8000},
		{ID: 3, Amount: 100, Price: 5000},
		{ID: 4, Amount: 50, Price: 2500},
	}
	sf := GroupStorefront(prices)
	require.NotNil(t, sf.WeeklyPass)
	require.Equal(t, int64(2), sf.WeeklyPass.ID.Int64())
	// 钻石包按数量升序，周卡不混在其中
	require.Len(t, sf.Diamonds, 3)
	require.Equal(t, int64(50), sf.Diamonds[0].Amount.Int64())
	require.Equal(t, int64(100), sf.Diamonds[1].Amount.Int64())
	require.Equal(t, int64(500), sf.Diamonds[2].Amount.Int64())
}

func TestGroupStorefrontWithoutPass(t *testing.T) {
	sf := GroupStorefront([]model.PricePackage{{ID: 1, Amount: 100, Price: 5000}})
	require.Nil(t, sf.WeeklyPass)
	require.Len(t, sf.Diamonds, 1)
}
