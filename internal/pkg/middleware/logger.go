package middleware

import (
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/logger"
	"github.com/manmiddle614-crypto/backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func LoggerMiddleware(mc *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Generate Request ID
		requestID := uuid.New().String()
		c.Set("RequestID", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()

		// 用路由模板做标签，避免路径参数导致指标爆炸
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		mc.RecordHTTPRequest(c.Request.Method, endpoint, status, cost)

		logger.Log.Info(path,
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
			zap.String("trace_id", c.GetString("traceID")),
			zap.String("tenant_id", c.GetString(CtxTenantID)),
			zap.Duration("cost", cost),
		)
	}
}
