package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/manmiddle614-crypto/backend/docs"
	_ "github.com/manmiddle614-crypto/backend/internal/domain/common"
	_ "github.com/manmiddle614-crypto/backend/internal/domain/redemption"
	"github.com/manmiddle614-crypto/backend/internal/pkg/config"
	"github.com/manmiddle614-crypto/backend/internal/pkg/middleware"
	"github.com/manmiddle614-crypto/backend/internal/pkg/registry"
	"github.com/manmiddle614-crypto/backend/internal/pkg/worker"
	"github.com/manmiddle614-crypto/backend/pkg/cache"
	"github.com/manmiddle614-crypto/backend/pkg/database"
	"github.com/manmiddle614-crypto/backend/pkg/logger"
	"github.com/manmiddle614-crypto/backend/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title           Mess Meal Redemption API
// @version         1.0
// @description     Scan-to-redeem meal plans for multi-tenant mess operators.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.LoadConfig()
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Debug); err != nil {
		panic(err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	// 1. 存储
	db := database.InitDatabase(cfg.Database, cfg.App.Debug)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		var err error
		if rdb, err = database.InitRedis(cfg.Redis); err != nil {
			logger.Log.Fatal("connect redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	sqlxDB, err := database.InitSQLX(cfg.Database)
	if err != nil {
		// 清理任务不可用不影响核销
		logger.Log.Warn("sqlx connection unavailable, sweeper disabled", zap.Error(err))
	} else {
		defer sqlxDB.Close()
	}

	// nonce 占位和配置缓存必须跨实例共享，内存实现只适合单实例开发
	var cacheSvc cache.CacheService
	if rdb != nil {
		cacheSvc = cache.NewRedisCache(rdb, "")
	} else {
		logger.Log.Warn("redis not configured, using in-memory cache")
		cacheSvc = cache.NewMemoryCache(cfg.Redemption.NonceCapacity)
	}

	// 2. 指标与异步任务
	mc := metrics.NewMetricsCollector(nil)
	pool := worker.NewWorkerPool(cfg.Redemption.Workers, cfg.Redemption.QueueSize, mc)
	pool.Start()

	// 3. 路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Trace-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware(mc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	moduleCtx := &registry.ModuleContext{
		Ctx:     ctx,
		DB:      db,
		SQLX:    sqlxDB,
		Redis:   rdb,
		Cache:   cacheSvc,
		Metrics: mc,
		Workers: pool,
		Router:  r,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("module init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 4. 优雅退出：先停接入，再停后台任务，最后排空异步队列
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown error", zap.Error(err))
	}

	cancel()
	pool.Stop()
	logger.Log.Info("server exited")
}
