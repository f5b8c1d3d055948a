package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const (
	// SubmissionPending 表示请求已占位，后端调用尚未返回。
	SubmissionPending = "pending"
	// SubmissionSuccess 表示后端已受理，message 为服务端确认文案。
	SubmissionSuccess = "success"
	// SubmissionFailed 表示提交失败（已终态），reason 记录失败原因。
	SubmissionFailed = "failed"
)

// SubmissionState 对应 Redis 内的提交结果结构。
type SubmissionState struct {
	RequestID string
	Status    string
	Message   string
	Reason    string
}

// GetSubmissionState 查询 request_id 当前状态。found=false 表示 key 不存在。
func GetSubmissionState(ctx context.Context, rdb *rd.Client, requestID string) (SubmissionState, bool, error) {
	key := SubmissionStateKey(requestID)
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return SubmissionState{}, false, err
	}
	if len(m) == 0 {
		return SubmissionState{}, false, nil
	}

	out := SubmissionState{
		RequestID: requestID,
		Status:    m["status"],
		Message:   m["message"],
		Reason:    m["reason"],
	}
	if out.Status == "" {
		out.Status = SubmissionPending
	}
	return out, true, nil
}

// PutSubmissionState 更新提交状态，并刷新 key TTL。
func PutSubmissionState(ctx context.Context, rdb *rd.Client, requestID, status, message, reason string, ttl time.Duration) error {
	key := SubmissionStateKey(requestID)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"request_id", requestID,
		"status", status,
		"message", message,
		"reason", reason,
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
