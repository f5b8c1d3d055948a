package router

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/catalog"
	"diamond_shop/internal/config"
	"diamond_shop/internal/logger"
	"diamond_shop/internal/middleware"
	"diamond_shop/internal/model"
	"diamond_shop/internal/moderation"
	"diamond_shop/internal/order"
	"diamond_shop/internal/session"
	rediskey "diamond_shop/pkg/redis"
)

// Deps 路由层依赖集合，main 里组装。
type Deps struct {
	API      *backend.Client
	RDB      *rd.Client
	Sessions *session.Store
	Catalog  *catalog.Accessor
	Guard    *order.Guard
	Queue    *moderation.Queue
	Cfg      config.AppConfig
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Auth
	r.POST("/api/auth/register", registerUser(d))
	r.POST("/api/auth/login", login(d))

	// Storefront（无须登录即可浏览）
	r.GET("/api/packages", listPackages(d))

	authed := r.Group("/api", middleware.SessionAuth(d.Sessions))
	{
		authed.POST("/auth/logout", logout(d))
		authed.POST("/orders",
			middleware.RedisRateLimit(d.RDB, d.Cfg.BuyRateLimit, d.Cfg.BuyRateWindow),
			submitOrder(d))
		authed.GET("/orders/result/:request_id", submissionResult(d))
		authed.GET("/orders/history", purchaseHistory(d))
	}

	admin := r.Group("/api/admin", middleware.SessionAuth(d.Sessions), middleware.AdminOnly())
	{
		admin.GET("/orders", adminListOrders(d))
		admin.POST("/orders/:id/status", adminSetStatus(d))
		admin.GET("/packages", adminListPackages(d))
		admin.POST("/packages", adminCreatePackage(d))
		admin.PUT("/packages/:id", adminUpdatePackage(d))
		admin.DELETE("/packages/:id", adminDeletePackage(d))
	}
}

// respondBackendErr 把后端调用失败映射为响应：
// 业务错误沿用后端状态码（传输成功但带 error 字段时可能是 200，
// 归一成 400），传输层错误统一 502。
func respondBackendErr(c *gin.Context, err error) {
	if apiErr, ok := backend.IsAPIError(err); ok {
		status := apiErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"code": status, "msg": apiErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"code": 502, "msg": err.Error()})
}

// registerUser 代理注册，成功即登录（签发本地会话）。
func registerUser(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username   string `json:"username" binding:"required"`
			Password   string `json:"password" binding:"required"`
			TelegramID string `json:"telegram_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		user, msg, err := d.API.Register(c.Request.Context(), req.Username, req.Password, req.TelegramID)
		if err != nil {
			respondBackendErr(c, err)
			return
		}
		sess, err := d.Sessions.Create(*user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"token":   sess.Token,
			"user":    user,
			"message": msg,
		}})
	}
}

// login 代理登录并签发本地会话。
func login(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		user, msg, err := d.API.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondBackendErr(c, err)
			return
		}
		sess, err := d.Sessions.Create(*user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		logger.Info("login", zap.Int64("user_id", user.ID.Int64()), zap.Bool("is_admin", user.IsAdmin))
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"token":   sess.Token,
			"user":    user,
			"message": msg,
		}})
	}
}

// logout 删除会话，显式结束生命周期。
func logout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		if err := d.Sessions.Delete(sess.Token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "logged out"})
	}
}

// listPackages 商城价目：周卡置顶、钻石包升序的分组视图。
func listPackages(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		game := c.DefaultQuery("game", d.Cfg.DefaultGame)
		server := c.Query("server")
		prices, err := d.Catalog.List(c.Request.Context(), game, server)
		if err != nil {
			respondBackendErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": catalog.GroupStorefront(prices)})
	}
}

// submitOrder 下单入口。
// 关键流程：
// 1. 必填校验（守卫负责，文案固定，不发请求）
// 2. 单槽位占位，重复触发直接 409
// 3. 同步调用后端建单
// 4. 结果写入 Redis 供 result 接口复查
func submitOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		// 字符串字段不在 binding 里做 required：缺失要走守卫的
		// 统一校验，保持 "Please fill all fields" 文案
		var req struct {
			PackageID     int64  `json:"package_id" binding:"required,min=1"`
			GameID        string `json:"game_id"`
			ServerID      string `json:"server_id"`
			PaymentMethod string `json:"payment_method"`
			PaymentNumber string `json:"payment_number"`
			PaymentName   string `json:"payment_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		res, err := d.Guard.Submit(c.Request.Context(), sess.User(), order.SubmissionInput{
			PackageID:     req.PackageID,
			GameID:        req.GameID,
			ServerID:      req.ServerID,
			PaymentMethod: req.PaymentMethod,
			PaymentNumber: req.PaymentNumber,
			PaymentName:   req.PaymentName,
		})
		switch {
		case err == order.ErrMissingFields:
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
		case err == order.ErrSubmissionInFlight:
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "a submission is already in flight, please wait"})
		case err != nil:
			if res.RequestID != "" {
				recordSubmission(c, d, res.RequestID, rediskey.SubmissionFailed, "", err.Error())
			}
			respondBackendErr(c, err)
		default:
			recordSubmission(c, d, res.RequestID, rediskey.SubmissionSuccess, res.Message, "")
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"request_id": res.RequestID,
				"message":    res.Message,
			}})
		}
	}
}

// recordSubmission 结果落 Redis 失败只记日志，不影响主流程。
func recordSubmission(c *gin.Context, d Deps, requestID, status, message, reason string) {
	if err := rediskey.PutSubmissionState(c.Request.Context(), d.RDB,
		requestID, status, message, reason, d.Cfg.SubmitResultTTL); err != nil {
		logger.Warn("record submission state", zap.String("request_id", requestID), zap.Error(err))
	}
}

// submissionResult 按 request_id 复查提交结果。
func submissionResult(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Param("request_id")
		if reqID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "request_id 必填"})
			return
		}
		st, found, err := rediskey.GetSubmissionState(c.Request.Context(), d.RDB, reqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "request_id 不存在"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"request_id": st.RequestID,
			"status":     st.Status,
			"message":    st.Message,
			"reason":     st.Reason,
		}})
	}
}

// historyItem 购买历史的展示条目。
type historyItem struct {
	model.Order
	Voucher       string  `json:"voucher"`
	Type          string  `json:"type"`
	ResolvedPrice float64 `json:"resolved_price"`
	PriceResolved bool    `json:"price_resolved"`
	PriceDisplay  string  `json:"price_display"`
	Game          string  `json:"game"`
	Server        string  `json:"server"`
}

// purchaseHistory 用户订单历史：逐单解析展示价格并附凭证号。
// 价目快照拉不到时不让历史页整体失败，价格按未解析渲染。
func purchaseHistory(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		orders, err := d.API.PurchaseHistory(c.Request.Context(), sess.UserID)
		if err != nil {
			respondBackendErr(c, err)
			return
		}

		snapshot, err := d.Catalog.List(c.Request.Context(), d.Cfg.DefaultGame, "")
		if err != nil {
			logger.Warn("load catalog snapshot for history", zap.Error(err))
			snapshot = nil
		}

		items := make([]historyItem, 0, len(orders))
		for _, o := range orders {
			res := order.ResolvePrice(o, snapshot)
			display := "N/A"
			if res.Resolved {
				display = formatMMK(res.Price)
			}
			items = append(items, historyItem{
				Order:         o,
				Voucher:       order.VoucherOf(o.ID.Int64()),
				Type:          o.Kind().String(),
				ResolvedPrice: res.Price,
				PriceResolved: res.Resolved,
				PriceDisplay:  display,
				Game:          o.DisplayGame(),
				Server:        o.DisplayServer(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"purchases": items}})
	}
}

// adminListOrders 审核队列：刷新 + 本地 AND 过滤（状态相等 ×
// 用户名子串，大小写不敏感）。刷新失败时返回上一份好数据并标记
// stale，缓存绝不因失败被清空。
func adminListOrders(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := model.ParseStatus(c.DefaultQuery("status", string(model.StatusPending)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		username := c.Query("username")

		if username != "" {
			err = d.Queue.RefreshByUsername(c.Request.Context(), username)
		} else {
			err = d.Queue.Refresh(c.Request.Context(), status)
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"code": 502, "msg": err.Error(), "data": gin.H{
				"orders": d.Queue.Filter(status, username),
				"stale":  true,
			}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"orders": d.Queue.Filter(status, username),
			"stale":  false,
		}})
	}
}

// adminSetStatus 审核写入：Pending → Success/Failed，可附备注。
func adminSetStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "订单ID无效"})
			return
		}
		var req struct {
			Status     string `json:"status" binding:"required"`
			AdminNotes string `json:"admin_notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		err = d.Queue.SetStatus(c.Request.Context(), orderID, model.Status(req.Status), req.AdminNotes)
		switch {
		case err == moderation.ErrInvalidTransition:
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
		case err == moderation.ErrNotPending:
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": err.Error()})
		case err != nil:
			respondBackendErr(c, err)
		default:
			logger.LogAdminAction(sess.UserID, "update_purchase",
				fmt.Sprintf("order=%d status=%s", orderID, req.Status))
			c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "status updated"})
		}
	}
}

// adminListPackages 管理端全量价目，刷新失败时同样回退到 stale 缓存。
func adminListPackages(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Catalog.RefreshAdmin(c.Request.Context()); err != nil {
			prices, loaded := d.Catalog.Prices()
			if !loaded {
				respondBackendErr(c, err)
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"code": 502, "msg": err.Error(), "data": gin.H{
				"prices": prices,
				"stale":  true,
			}})
			return
		}
		prices, _ := d.Catalog.Prices()
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"prices": prices, "stale": false}})
	}
}

// packageReq 价目条目写操作的请求体。amount 用指针让 0（周卡）能
// 通过 required 校验。
type packageReq struct {
	GameName   string   `json:"game_name" binding:"required"`
	ServerName string   `json:"server_name" binding:"required"`
	Amount     *int64   `json:"amount" binding:"required"`
	Price      *float64 `json:"price" binding:"required"`
}

func adminCreatePackage(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		var req packageReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		created, err := d.Catalog.Create(c.Request.Context(), req.GameName, req.ServerName, *req.Amount, *req.Price)
		if err != nil {
			respondCatalogErr(c, err)
			return
		}
		logger.LogAdminAction(sess.UserID, "create_price",
			fmt.Sprintf("%s/%s amount=%d", req.GameName, req.ServerName, *req.Amount))
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": created})
	}
}

func adminUpdatePackage(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "价目ID无效"})
			return
		}
		var req packageReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		updated, err := d.Catalog.Update(c.Request.Context(), id, req.GameName, req.ServerName, *req.Amount, *req.Price)
		if err != nil {
			respondCatalogErr(c, err)
			return
		}
		logger.LogAdminAction(sess.UserID, "update_price", fmt.Sprintf("id=%d", id))
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": updated})
	}
}

func adminDeletePackage(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "价目ID无效"})
			return
		}
		if err := d.Catalog.Delete(c.Request.Context(), id); err != nil {
			respondCatalogErr(c, err)
			return
		}
		logger.LogAdminAction(sess.UserID, "delete_price", fmt.Sprintf("id=%d", id))
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

// respondCatalogErr 区分本地校验失败（400，没发过请求）和后端失败。
func respondCatalogErr(c *gin.Context, err error) {
	switch err {
	case catalog.ErrInvalidAmount, catalog.ErrInvalidPrice, catalog.ErrMissingGameServer:
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
	default:
		respondBackendErr(c, err)
	}
}

// formatMMK 千分位格式化，如 formatMMK(5000) == "5,000 MMK"。
func formatMMK(price float64) string {
	s := strconv.FormatFloat(price, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	n := len(intPart)
	for i, ch := range intPart {
		if i > 0 && (n-i)%3 == 0 && ch != '-' && intPart[i-1] != '-' {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return b.String() + frac + " MMK"
}
