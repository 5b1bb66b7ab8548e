package redemption

import (
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/handler"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/service"
	"github.com/manmiddle614-crypto/backend/internal/pkg/config"
	"github.com/manmiddle614-crypto/backend/internal/pkg/middleware"
	"github.com/manmiddle614-crypto/backend/internal/pkg/push"
	"github.com/manmiddle614-crypto/backend/internal/pkg/registry"
	"github.com/manmiddle614-crypto/backend/internal/pkg/uploader"
	"github.com/manmiddle614-crypto/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RedemptionModule 扫码核销模块
type RedemptionModule struct{}

func init() {
	registry.Register(&RedemptionModule{})
}

func (m *RedemptionModule) Name() string {
	return "redemption"
}

func (m *RedemptionModule) Priority() int {
	return 10
}

func (m *RedemptionModule) Init(ctx *registry.ModuleContext) error {
	cfg := config.GlobalConfig

	// 1. 依赖注入
	settings := service.NewSettingsProvider(
		repository.NewSettingsRepository(ctx.DB),
		ctx.Cache,
		cfg.Redemption.SettingsCacheTTL,
		service.SettingsDefaults{
			DoubleScanWindow: cfg.Redemption.DoubleScanWindow,
			Policy:           model.DuplicatePolicy(cfg.Redemption.DuplicatePolicy),
			Timezone:         cfg.Redemption.DefaultTimezone,
		},
	)

	svc := service.NewRedemptionService(service.Dependencies{
		Customers:     repository.NewCustomerRepository(ctx.DB),
		Subscriptions: repository.NewSubscriptionRepository(ctx.DB),
		Transactions:  repository.NewTransactionRepository(ctx.DB),
		Settings:      settings,
		Nonces:        service.NewNonceStore(ctx.Cache),
		Notifier:      buildNotifier(ctx, cfg),
		Archiver:      buildArchiver(cfg),
		Workers:       ctx.Workers,
		Metrics:       ctx.Metrics,
	}, service.Options{
		Secret:       []byte(cfg.QR.Secret),
		StoreTimeout: cfg.Redemption.StoreTimeout,
	})
	h := handler.NewRedemptionHandler(svc, settings, cfg.Redemption.MaxBatchSize)

	// 2. 定时清理 (随服务生命周期退出)
	if ctx.SQLX != nil {
		sweeper := service.NewSweeper(repository.NewSweepRepository(ctx.SQLX), cfg.Redemption.SweepInterval)
		go sweeper.Run(ctx.Ctx)
	}

	// 3. 路由注册
	limiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.Redemption.ScannerRateLimit), cfg.Redemption.ScannerRateBurst)
	setupRoutes(ctx.Router, h, limiter)
	return nil
}

// buildNotifier 按配置组装通知渠道，单个渠道初始化失败只跳过
func buildNotifier(ctx *registry.ModuleContext, cfg config.Config) push.Notifier {
	var notifiers push.MultiNotifier

	if cfg.Notify.RedisChannel != "" && ctx.Redis != nil {
		notifiers = append(notifiers, push.NewRedisPublisher(ctx.Redis, cfg.Notify.RedisChannel))
	}
	if cfg.Push.AccessKeyID != "" {
		aliyun, err := push.NewAliyunPushService(cfg.Push)
		if err != nil {
			logger.Log.Warn("aliyun push disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, aliyun)
		}
	}
	if cfg.Notify.FCMCredentials != "" {
		fcm, err := push.NewFCMNotifier(ctx.Ctx, cfg.Notify.FCMCredentials)
		if err != nil {
			logger.Log.Warn("fcm push disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, fcm)
		}
	}

	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

func buildArchiver(cfg config.Config) uploader.Archiver {
	if cfg.OSS.Endpoint == "" {
		return nil
	}
	archiver, err := uploader.NewAliyunOSSUploader(cfg.OSS)
	if err != nil {
		logger.Log.Warn("batch archive disabled", zap.Error(err))
		return nil
	}
	return archiver
}

func setupRoutes(r *gin.Engine, h *handler.RedemptionHandler, limiter *middleware.KeyedRateLimiter) {
	g := r.Group("/redemptions")
	g.Use(middleware.AuthMiddleware())
	{
		// 扫码设备接口，按员工限流
		scans := g.Group("")
		scans.Use(middleware.ScannerRateLimit(limiter))
		{
			scans.POST("/scan", h.Scan)
			scans.POST("/sync", h.Sync)
		}

		g.GET("/transactions", h.ListTransactions)
		g.GET("/settings", h.GetSettings)

		admin := g.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.PUT("/settings", h.UpdateSettings)
		}
	}
}
