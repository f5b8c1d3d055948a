package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"diamond_shop/internal/model"
	"diamond_shop/internal/session"
)

// sessionKey 会话在 gin context 里的存放键。
const sessionKey = "diamond_shop.session"

// SessionAuth 按 Authorization: Bearer <token> 解析会话并注入请求
// 上下文，解析失败一律 401。身份全程显式传递，handler 不读全局。
func SessionAuth(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "missing session token"})
			return
		}
		sess, err := store.Get(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid session token"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// AdminOnly 在 SessionAuth 之后使用，要求会话带管理员标记。
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok || !sess.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "msg": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentSession 取出请求上下文里的会话。
func CurrentSession(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return model.Session{}, false
	}
	sess, ok := v.(model.Session)
	return sess, ok
}

// bearerToken 解析 Authorization 头，兼容裸 token。
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return header
}
