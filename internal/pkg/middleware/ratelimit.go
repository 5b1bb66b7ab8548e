package middleware

import (
	"net/http"
	"sync"

	"github.com/manmiddle614-crypto/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter 按 key (扫码设备/IP) 存储限流器
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter 创建限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// GetLimiter 获取指定 key 的限流器
func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = limiter
	}

	return limiter
}

// ScannerRateLimit 限流中间件：已认证请求按员工限流，否则按 IP
// 防止故障设备连续重复上报压垮数据库
func ScannerRateLimit(l *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(CtxStaffID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.GetLimiter(key).Allow() {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
