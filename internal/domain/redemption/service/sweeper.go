package service

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/pkg/logger"

	"go.uber.org/zap"
)

// Sweeper 定时停用余额为 0 或已过期的套餐
// 核销成功后的即时停用是尽力而为，这里兜底
type Sweeper struct {
	repo     repository.SweepRepository
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(repo repository.SweepRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{repo: repo, interval: interval, now: time.Now}
}

// SweepOnce 执行一次，返回停用数量
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateLapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Log.Info("subscriptions deactivated by sweep", zap.Int64("count", n))
	}
	return n, nil
}

// Run 阻塞直到 ctx 取消
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				logger.Log.Error("subscription sweep failed", zap.Error(err))
			}
		}
	}
}
