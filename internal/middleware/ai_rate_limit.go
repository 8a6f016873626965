package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"obra_catalog/pkg/errs"
)

// ==================== AI 限流中间件 ====================

// AIRateLimit 按客户端 IP + 调用类型限流
//
// 使用示例:
//
//	products.POST("/:id/image/generate",
//	    middleware.AIRateLimit(limiter, middleware.AIKindImage, 0),
//	    imageCtl.Generate,
//	)
//
// interval 为 0 时使用该类型的默认值
func AIRateLimit(limiter *RateLimiter, kind AIKind, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(kind)
	}

	return func(c *gin.Context) {
		// 本地搜索不走 AI，不计入冷却
		if kind == AIKindSearch && c.Query("mode") != "ai" {
			c.Next()
			return
		}

		result := limiter.Check(ClientKey(c.ClientIP(), kind), interval)
		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", retrySeconds(result.RetryAfter)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retrySeconds(result.RetryAfter),
					"kind":        kind,
				},
			})
			c.Error(errs.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ==================== 辅助函数 ====================

func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// formatRetryMessage 重试提示
func formatRetryMessage(d time.Duration) string {
	seconds := retrySeconds(d)
	if seconds < 60 {
		return fmt.Sprintf("%s，请 %d 秒后重试", errs.ErrRateLimited.Error(), seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("%s，请 %d 分钟后重试", errs.ErrRateLimited.Error(), minutes)
	}
	return fmt.Sprintf("%s，请 %d 分 %d 秒后重试", errs.ErrRateLimited.Error(), minutes, remainingSeconds)
}
