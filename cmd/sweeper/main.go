package main

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/service"
	"github.com/manmiddle614-crypto/backend/internal/pkg/config"
	"github.com/manmiddle614-crypto/backend/pkg/database"
	"github.com/manmiddle614-crypto/backend/pkg/logger"

	"go.uber.org/zap"
)

// 一次性清理过期套餐，供 cron 调用；常驻服务里的清理协程做同样的事
func main() {
	config.LoadConfig()
	if err := logger.InitLogger(config.GlobalConfig.App.Debug); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.InitSQLX(config.GlobalConfig.Database)
	if err != nil {
		logger.Log.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo := repository.NewSweepRepository(db)
	sweeper := service.NewSweeper(repo, 0)
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		logger.Log.Fatal("sweep failed", zap.Error(err))
	}
	logger.Log.Info("sweep finished", zap.Int64("deactivated", n))

	counts, err := repo.CountActive(ctx)
	if err != nil {
		logger.Log.Fatal("count active subscriptions", zap.Error(err))
	}
	for tenantID, n := range counts {
		logger.Log.Info("active subscriptions", zap.String("tenant_id", tenantID), zap.Int64("count", n))
	}
}
