package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/service"
)

func RateLimitMiddleware(am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 必须在 AuthMiddleware 之后使用
		accountVal, exists := c.Get(ContextAccountKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		account := accountVal.(*model.Account)

		limiter := am.GetLimiterForAccount(account.Address)
		if limiter == nil {
			// AccountManager 数据不一致时放行
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
