package common

import (
	"context"
	"net/http"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/pkg/registry"
	"github.com/manmiddle614-crypto/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// CommonModule 通用路由：健康检查、指标、接口文档
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	setupRoutes(ctx.Router, ctx.DB, ctx.Redis)
	return nil
}

func setupRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client) {
	r.GET("/health", healthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthHandler 依次检查数据库和 Redis，任一不可用返回 503
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if db != nil {
			checks["database"] = "ok"
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				checks["database"] = "unavailable"
				healthy = false
			}
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unavailable"
				healthy = false
			}
		}

		if !healthy {
			response.ErrorWithData(c, http.StatusServiceUnavailable, response.ErrServerInternal, "unhealthy", checks)
			return
		}
		response.Success(c, checks)
	}
}
