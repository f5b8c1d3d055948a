package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr string

	// 远端商城后端（用户、订单、价目表的唯一事实来源）
	BackendBaseURL string

	RedisAddr string
	RedisDB   int

	// 本地会话库（sqlite）
	SessionDBPath string

	// 商城默认展示的游戏
	DefaultGame string

	// 提交占位锁：claim 的兜底 TTL、完成后的冷却期、结果记录保留时长
	SubmitHoldTTL   time.Duration
	SubmitCooldown  time.Duration
	SubmitResultTTL time.Duration

	// 下单接口限流
	BuyRateLimit  int
	BuyRateWindow time.Duration
}

// Load 读取并校验配置，缺失时使用默认值。
// 先尝试加载 .env，没有就直接读环境变量。
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		BackendBaseURL:  getEnv("BACKEND_BASE_URL", "https://congabackend.onrender.com"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         0,
		SessionDBPath:   getEnv("SESSION_DB_PATH", "diamond_shop.db"),
		DefaultGame:     getEnv("DEFAULT_GAME", "Mobile Legends"),
		SubmitHoldTTL:   30 * time.Second,
		SubmitCooldown:  2 * time.Second,
		SubmitResultTTL: 24 * time.Hour,
		BuyRateLimit:    10,
		BuyRateWindow:   time.Second,
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	holdSec, err := getEnvInt("SUBMIT_HOLD_TTL_SEC", int(cfg.SubmitHoldTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SUBMIT_HOLD_TTL_SEC: %w", err)
	}
	if holdSec <= 0 {
		return AppConfig{}, fmt.Errorf("SUBMIT_HOLD_TTL_SEC must be > 0")
	}
	cfg.SubmitHoldTTL = time.Duration(holdSec) * time.Second

	coolMs, err := getEnvInt("SUBMIT_COOLDOWN_MS", int(cfg.SubmitCooldown.Milliseconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SUBMIT_COOLDOWN_MS: %w", err)
	}
	if coolMs <= 0 {
		return AppConfig{}, fmt.Errorf("SUBMIT_COOLDOWN_MS must be > 0")
	}
	cfg.SubmitCooldown = time.Duration(coolMs) * time.Millisecond

	resultHour, err := getEnvInt("SUBMIT_RESULT_TTL_HOUR", int(cfg.SubmitResultTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SUBMIT_RESULT_TTL_HOUR: %w", err)
	}
	if resultHour <= 0 {
		return AppConfig{}, fmt.Errorf("SUBMIT_RESULT_TTL_HOUR must be > 0")
	}
	cfg.SubmitResultTTL = time.Duration(resultHour) * time.Hour

	rateLimit, err := getEnvInt("BUY_RATE_LIMIT", cfg.BuyRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BUY_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("BUY_RATE_LIMIT must be > 0")
	}
	cfg.BuyRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("BUY_RATE_WINDOW_SEC", int(cfg.BuyRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BUY_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("BUY_RATE_WINDOW_SEC must be > 0")
	}
	cfg.BuyRateWindow = time.Duration(rateWindowSec) * time.Second

	if cfg.BackendBaseURL == "" {
		return AppConfig{}, fmt.Errorf("BACKEND_BASE_URL must not be empty")
	}
	if cfg.RedisAddr == "" {
		return AppConfig{}, fmt.Errorf("REDIS_ADDR must not be empty")
	}
	if cfg.DefaultGame == "" {
		return AppConfig{}, fmt.Errorf("DEFAULT_GAME must not be empty")
	}
	// 冷却期必须短于兜底 TTL，否则 settle 反而延长持锁时间
	if cfg.SubmitCooldown >= cfg.SubmitHoldTTL {
		return AppConfig{}, fmt.Errorf("SUBMIT_COOLDOWN_MS must be shorter than SUBMIT_HOLD_TTL_SEC")
	}

	return cfg, nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
