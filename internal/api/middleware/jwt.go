package middleware

import (
	"net/http"
	"strings"

	"goaltrail/internal/api/token"
	"goaltrail/internal/pkg/metrics"
	"goaltrail/internal/pkg/revoke"

	"github.com/gin-gonic/gin"
)

// 上下文键，供下游 handler 读取。
const (
	ContextUserIDKey   = "userID"
	ContextIdentityKey = "identity"
)

// AuthMiddleware 校验 Bearer 令牌并将用户身份写入上下文。
//
// 任何一条拒绝路径都会 Abort，带不合法令牌的请求绝不会到达 handler。
func AuthMiddleware(tokens *token.Service, denylist *revoke.Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, "missing")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			reject(c, "malformed_header")
			return
		}

		ident, err := tokens.Verify(parts[1])
		if err != nil {
			reject(c, "invalid_token")
			return
		}

		revoked, err := denylist.IsRevoked(c.Request.Context(), ident.TokenID)
		if err != nil {
			// 吊销名单不可用时保守拒绝
			reject(c, "denylist_error")
			return
		}
		if revoked {
			reject(c, "revoked")
			return
		}

		c.Set(ContextUserIDKey, ident.UserID)
		c.Set(ContextIdentityKey, ident)
		c.Next()
	}
}

func reject(c *gin.Context, reason string) {
	if metrics.AuthRejectedTotal != nil {
		metrics.AuthRejectedTotal.WithLabelValues(reason).Inc()
	}
	c.JSON(http.StatusForbidden, gin.H{"message": "Unauthenticated"})
	c.Abort()
}

// UserID 从上下文取出已认证的用户 ID。
func UserID(c *gin.Context) uint {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

// Identity 从上下文取出完整令牌身份，守卫未运行时返回 nil。
func Identity(c *gin.Context) *token.Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	ident, _ := v.(*token.Identity)
	return ident
}
