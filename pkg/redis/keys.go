package redis

import "fmt"

// SubmitSlotKey 标记某用户当前是否有在途的下单提交。
func SubmitSlotKey(userID int64) string {
	return fmt.Sprintf("diamond_shop:submit:slot:%d", userID)
}

// SubmissionStateKey 存储 request_id 对应的提交结果（pending/success/failed）。
func SubmissionStateKey(requestID string) string {
	return fmt.Sprintf("diamond_shop:submit:state:%s", requestID)
}

// RateLimitUserKey 下单接口按用户限流的键名。
func RateLimitUserKey(userID int64) string {
	return fmt.Sprintf("diamond_shop:rate_limit:buy:user:%d", userID)
}

// RateLimitIPKey 无法识别用户时按 IP 限流的降级键名。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("diamond_shop:rate_limit:buy:ip:%s", ip)
}
