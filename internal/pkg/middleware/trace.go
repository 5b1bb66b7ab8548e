package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type traceKey struct{}

// TraceMiddleware 添加请求追踪ID，同时写入 request context，service 层日志可以带上
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 尝试从请求头获取 TraceID，如果没有则生成新的
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set("traceID", traceID)
		c.Header("X-Trace-ID", traceID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), traceKey{}, traceID))

		c.Next()
	}
}

// TraceID 从 context 取追踪ID，没有则返回空串
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
