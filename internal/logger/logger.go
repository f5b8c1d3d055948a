package logger

import (
	"go.uber.org/zap"
)

var log, _ = zap.NewProduction()

// L 暴露底层 logger，便于注入到需要持有 logger 的组件。
func L() *zap.Logger { return log }

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

// LogAdminAction 管理员操作审计日志，统一字段名便于检索。
func LogAdminAction(adminID int64, action, params string) {
	log.Info("admin_action", zap.Int64("admin_id", adminID), zap.String("action", action), zap.String("params", params))
}
