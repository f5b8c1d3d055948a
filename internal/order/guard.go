package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/model"
)

var (
	// ErrMissingFields 必填字段缺失，本地拒绝，不发网络请求。
	// 文案与前端展示一致。
	ErrMissingFields = errors.New("Please fill all fields")
	// ErrSubmissionInFlight 该用户已有在途提交（或仍在冷却期）。
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// Slot 单槽位提交锁的契约：claim 原子占位，settle 在完成后把持有
// 时间收缩为冷却期。Redis 实现见 pkg/redis，单机部署和测试可用
// MemorySlot。
type Slot interface {
	Claim(ctx context.Context, userID int64, token string) (bool, error)
	Settle(ctx context.Context, userID int64, token string) error
}

// SubmissionInput 一次购买请求的用户输入。
type SubmissionInput struct {
	PackageID     int64
	GameID        string
	ServerID      string
	PaymentMethod string
	PaymentNumber string
	PaymentName   string
}

// validate 必填字段校验。支付方式参与校验但不会发给后端。
func (in SubmissionInput) validate() error {
	if strings.TrimSpace(in.GameID) == "" ||
		strings.TrimSpace(in.ServerID) == "" ||
		strings.TrimSpace(in.PaymentMethod) == "" ||
		strings.TrimSpace(in.PaymentNumber) == "" ||
		strings.TrimSpace(in.PaymentName) == "" {
		return ErrMissingFields
	}
	return nil
}

// SubmissionResult 提交结果。RequestID 在占位成功后必然非空，
// 即便后端调用失败也会返回，供结果查询接口使用。
type SubmissionResult struct {
	RequestID string
	Message   string
}

// Guard 下单提交守卫：同一用户任一时刻至多一笔在途提交。
// 这是整个系统里唯一真正的并发危险点（重复建单），守卫的正确性
// 依赖 Slot 的原子占位语义，而不是可变标志位。
type Guard struct {
	api  *backend.Client
	slot Slot
}

// NewGuard 创建提交守卫。
func NewGuard(api *backend.Client, slot Slot) *Guard {
	return &Guard{api: api, slot: slot}
}

// Submit 构造并提交一次购买请求：
// 1. 本地必填校验，失败立即返回，不占槽位、不碰后端；
// 2. 原子占位，占不到说明有在途提交，直接拒绝；
// 3. 同步调用后端建单；
// 4. 无论成败都 settle，槽位在固定冷却期后自动释放。
func (g *Guard) Submit(ctx context.Context, user model.User, in SubmissionInput) (SubmissionResult, error) {
	if err := in.validate(); err != nil {
		return SubmissionResult{}, err
	}

	token := uuid.New().String()
	userID := user.ID.Int64()

	ok, err := g.slot.Claim(ctx, userID, token)
	if err != nil {
		return SubmissionResult{}, err
	}
	if !ok {
		return SubmissionResult{}, ErrSubmissionInFlight
	}
	// settle 失败只能靠占位 TTL 兜底，这里不再上抛
	defer func() { _ = g.slot.Settle(ctx, userID, token) }()

	msg, err := g.api.BuyDiamond(ctx, userID, in.PackageID, in.GameID, in.ServerID, in.PaymentNumber, in.PaymentName)
	if err != nil {
		return SubmissionResult{RequestID: token}, err
	}
	return SubmissionResult{RequestID: token, Message: msg}, nil
}

// MemorySlot 进程内的单槽位实现，语义与 Redis 版一致：
// 占位带兜底过期时间，settle 把过期时间改为冷却期终点。
// 适用于单实例部署和测试。
type MemorySlot struct {
	holdTTL  time.Duration
	cooldown time.Duration

	mu    sync.Mutex
	slots map[int64]memoryHold
}

type memoryHold struct {
	token   string
	expires time.Time
}

// NewMemorySlot 创建进程内槽位。
func NewMemorySlot(holdTTL, cooldown time.Duration) *MemorySlot {
	return &MemorySlot{
		holdTTL:  holdTTL,
		cooldown: cooldown,
		slots:    make(map[int64]memoryHold),
	}
}

func (m *MemorySlot) Claim(_ context.Context, userID int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if h, held := m.slots[userID]; held && now.Before(h.expires) {
		return false, nil
	}
	m.slots[userID] = memoryHold{token: token, expires: now.Add(m.holdTTL)}
	return true, nil
}

func (m *MemorySlot) Settle(_ context.Context, userID int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, held := m.slots[userID]
	if !held || h.token != token {
		return nil
	}
	h.expires = time.Now().Add(m.cooldown)
	m.slots[userID] = h
	return nil
}
