package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/model"
)

var (
	// ErrInvalidTransition 审核只能写入 Success 或 Failed。
	ErrInvalidTransition = errors.New("status transition must target Success or Failed")
	// ErrNotPending 订单已离开 Pending，终态不允许再改。
	ErrNotPending = errors.New("order is no longer pending")
)

// Queue 管理端审核队列。
// 持有最近一次成功拉取的订单列表：本地过滤是非破坏性的，切换过滤
// 条件不需要重新拉取；拉取失败时保留上一份好数据，列表只在成功
// 刷新时被整体替换。
// 已知并记录的局限：两个管理员并发处理同一单时后写覆盖先写，
// 没有冲突检测。
type Queue struct {
	api *backend.Client

	mu     sync.Mutex
	orders []model.Order
	// 最近一次成功刷新用的状态过滤，写操作后按它重新拉全量
	lastStatus model.Status
}

// NewQueue 创建审核队列，初始状态过滤为 Pending。
func NewQueue(api *backend.Client) *Queue {
	return &Queue{api: api, lastStatus: model.StatusPending}
}

// Refresh 按状态从后端拉取订单列表。失败时缓存不动，错误上抛。
func (q *Queue) Refresh(ctx context.Context, status model.Status) error {
	orders, err := q.api.ListPurchases(ctx, status)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.orders = orders
	q.lastStatus = status
	q.mu.Unlock()
	return nil
}

// RefreshByUsername 走后端的用户名过滤接口拉取。失败时缓存不动。
func (q *Queue) RefreshByUsername(ctx context.Context, username string) error {
	orders, err := q.api.FilterPurchases(ctx, username)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.orders = orders
	q.mu.Unlock()
	return nil
}

// Orders 返回缓存列表的副本。
func (q *Queue) Orders() []model.Order {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.Order, len(q.orders))
	copy(out, q.orders)
	return out
}

// Filter 在缓存列表上做本地过滤，两个条件取 AND：
// - status 非 All 时要求状态相等；
// - username 非空时要求用户名包含该子串（不区分大小写）。
func (q *Queue) Filter(status model.Status, username string) []model.Order {
	needle := strings.ToLower(strings.TrimSpace(username))
	out := make([]model.Order, 0)
	for _, o := range q.Orders() {
		if status != model.StatusAll && o.EffectiveStatus() != status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(o.Username), needle) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SetStatus 对一笔 Pending 订单写入审核结论（可附备注），随后整体
// 重新拉取列表——相信后端落库后的状态，而不是本地打补丁。
// 状态机：Pending → {Success, Failed}，离开 Pending 即终态。
// 订单不在缓存里时放行（服务端兜底校验），在缓存里且已离开
// Pending 则本地直接拒绝。
func (q *Queue) SetStatus(ctx context.Context, orderID int64, newStatus model.Status, note string) error {
	if !newStatus.WritableTarget() {
		return ErrInvalidTransition
	}

	q.mu.Lock()
	for _, o := range q.orders {
		if o.ID.Int64() == orderID && o.EffectiveStatus().Terminal() {
			q.mu.Unlock()
			return ErrNotPending
		}
	}
	last := q.lastStatus
	q.mu.Unlock()

	if err := q.api.UpdatePurchase(ctx, orderID, newStatus, note); err != nil {
		return err
	}
	return q.Refresh(ctx, last)
}
