package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/catalog"
	"diamond_shop/internal/config"
	"diamond_shop/internal/logger"
	"diamond_shop/internal/moderation"
	"diamond_shop/internal/order"
	"diamond_shop/internal/router"
	"diamond_shop/internal/session"
	rediskey "diamond_shop/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config load", zap.Error(err))
	}

	// 1. 本地会话库（sqlite），建表由 store 完成
	db, err := gorm.Open(sqlite.Open(cfg.SessionDBPath), &gorm.Config{})
	if err != nil {
		logger.L().Fatal("db open", zap.Error(err))
	}
	sessions, err := session.NewStore(db)
	if err != nil {
		logger.L().Fatal("session store init", zap.Error(err))
	}

	// 2. Redis：提交槽位、提交结果、限流
	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.L().Fatal("redis ping", zap.Error(err))
	}

	// 3. 远端商城后端客户端与核心组件
	api := backend.New(cfg.BackendBaseURL)
	slot := rediskey.NewSubmitSlot(rdb, cfg.SubmitHoldTTL, cfg.SubmitCooldown)
	deps := router.Deps{
		API:      api,
		RDB:      rdb,
		Sessions: sessions,
		Catalog:  catalog.NewAccessor(api),
		Guard:    order.NewGuard(api, slot),
		Queue:    moderation.NewQueue(api),
		Cfg:      cfg,
	}

	r := gin.Default()
	router.Setup(r, deps)

	logger.Info("server start", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.BackendBaseURL))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.L().Fatal("server run", zap.Error(err))
	}
}
