package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/model"
)

var (
	// ErrInvalidAmount 数量必须是非负整数（0 保留给周卡）。
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")
	// ErrInvalidPrice 价格必须为正数。
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrMissingGameServer 游戏名和服务器名必填。
	ErrMissingGameServer = errors.New("game_name and server_name are required")
)

// Accessor 价目表访问器。
// 读取走后端过滤（不做客户端过滤兜底）；每次成功写操作后整体重拉
// 管理端全量目录——后端是唯一事实来源，可能做额外归一化，本地
// 打补丁不可靠。管理端目录同样保留上一份好数据，刷新失败不清空。
type Accessor struct {
	api *backend.Client

	mu     sync.Mutex
	prices []model.PricePackage
	loaded bool
}

// NewAccessor 创建价目表访问器。
func NewAccessor(api *backend.Client) *Accessor {
	return &Accessor{api: api}
}

// validateEntry 写操作前的本地校验，不过网络。
func validateEntry(game, server string, amount int64, price float64) error {
	if strings.TrimSpace(game) == "" || strings.TrimSpace(server) == "" {
		return ErrMissingGameServer
	}
	if amount < 0 {
		return ErrInvalidAmount
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// List 用户侧价目查询，过滤完全交给后端。
func (a *Accessor) List(ctx context.Context, game, server string) ([]model.PricePackage, error) {
	return a.api.ListPrices(ctx, game, server)
}

// RefreshAdmin 重拉管理端全量目录。失败时缓存不动，错误上抛。
func (a *Accessor) RefreshAdmin(ctx context.Context) error {
	prices, err := a.api.ListPricesAdmin(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.prices = prices
	a.loaded = true
	a.mu.Unlock()
	return nil
}

// Prices 返回管理端目录缓存的副本，以及是否成功加载过。
func (a *Accessor) Prices() ([]model.PricePackage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.PricePackage, len(a.prices))
	copy(out, a.prices)
	return out, a.loaded
}

// Create 新建条目：本地校验 → 后端创建 → 整体重拉。
func (a *Accessor) Create(ctx context.Context, game, server string, amount int64, price float64) (*model.PricePackage, error) {
	if err := validateEntry(game, server, amount, price); err != nil {
		return nil, err
	}
	created, err := a.api.CreatePrice(ctx, game, server, amount, price)
	if err != nil {
		return nil, err
	}
	if err := a.RefreshAdmin(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Update 按 id 整体替换四个可变字段，校验与 Create 相同。
func (a *Accessor) Update(ctx context.Context, id int64, game, server string, amount int64, price float64) (*model.PricePackage, error) {
	if err := validateEntry(game, server, amount, price); err != nil {
		return nil, err
	}
	updated, err := a.api.UpdatePrice(ctx, id, game, server, amount, price)
	if err != nil {
		return nil, err
	}
	if err := a.RefreshAdmin(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete 删除条目后整体重拉。删除不可逆，二次确认是调用方 UI 的
// 责任，这里不拦。
func (a *Accessor) Delete(ctx context.Context, id int64) error {
	if err := a.api.DeletePrice(ctx, id); err != nil {
		return err
	}
	return a.RefreshAdmin(ctx)
}

// Storefront 商城首页的分组视图：周卡单独置顶，钻石包按数量升序。
type Storefront struct {
	WeeklyPass *model.PricePackage  `json:"weekly_pass,omitempty"`
	Diamonds   []model.PricePackage `json:"diamonds"`
}

// GroupStorefront 把一份价目快照整理成商城展示结构。
func GroupStorefront(prices []model.PricePackage) Storefront {
	out := Storefront{Diamonds: make([]model.PricePackage, 0, len(prices))}
	for i := range prices {
		if prices[i].Kind() == model.KindWeeklyPass {
			if out.WeeklyPass == nil {
				p := prices[i]
				out.WeeklyPass = &p
			}
			continue
		}
		out.Diamonds = append(out.Diamonds, prices[i])
	}
	sort.Slice(out.Diamonds, func(i, j int) bool {
		return out.Diamonds[i].Amount.Int64() < out.Diamonds[j].Amount.Int64()
	})
	return out
}
