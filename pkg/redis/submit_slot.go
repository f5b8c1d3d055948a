package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaSettleSlotIfMatch 仅当槽位仍由本次提交的 token 持有时，把剩余
// TTL 收缩为冷却期。不直接 DEL：槽位要在提交完成后再保持一个固定
// 冷却窗口，用于吸收跟完成回调赛跑的重复触发。
const luaSettleSlotIfMatch = `
local slotKey = KEYS[1]
local token = ARGV[1]
local cooldownMs = tonumber(ARGV[2])
if redis.call('GET', slotKey) == token then
  return redis.call('PEXPIRE', slotKey, cooldownMs)
end
return 0
`

// SubmitSlot 基于 Redis 的单槽位提交锁：
// - Claim 原子占位（SET NX），TTL 是挂死请求的兜底释放时间；
// - Settle 在提交完成（无论成败）后调用，把持有时间收缩为冷却期。
// 占位失败即表示该用户已有在途提交，调用方直接拒绝，不碰后端。
type SubmitSlot struct {
	rdb      *rd.Client
	holdTTL  time.Duration
	cooldown time.Duration
}

// NewSubmitSlot 创建提交槽位。holdTTL 必须长于 cooldown。
func NewSubmitSlot(rdb *rd.Client, holdTTL, cooldown time.Duration) *SubmitSlot {
	return &SubmitSlot{rdb: rdb, holdTTL: holdTTL, cooldown: cooldown}
}

// Claim 尝试为 userID 占住提交槽位，token 作为持有凭证。
// 返回 false 表示槽位已被占用（在途提交或冷却期内）。
func (s *SubmitSlot) Claim(ctx context.Context, userID int64, token string) (bool, error) {
	return s.rdb.SetNX(ctx, SubmitSlotKey(userID), token, s.holdTTL).Result()
}

// Settle 提交完成后调用：token 匹配时把槽位 TTL 收缩为冷却期，
// 不匹配（已被兜底 TTL 释放并被新请求占用）则不动。
func (s *SubmitSlot) Settle(ctx context.Context, userID int64, token string) error {
	_, err := s.rdb.Eval(ctx, luaSettleSlotIfMatch,
		[]string{SubmitSlotKey(userID)}, token, s.cooldown.Milliseconds()).Int()
	return err
}
