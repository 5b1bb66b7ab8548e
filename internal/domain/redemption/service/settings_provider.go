package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/pkg/cache"
	"github.com/manmiddle614-crypto/backend/pkg/logger"
	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"go.uber.org/zap"
)

// SettingsDefaults 租户未配置或读取失败时的兜底值
type SettingsDefaults struct {
	DoubleScanWindow time.Duration
	Policy           model.DuplicatePolicy
	Timezone         string
}

// SettingsProvider 租户核销配置
type SettingsProvider interface {
	// Get 永远返回可用配置，读取失败或 ctx 结束时退回默认值
	Get(ctx context.Context, tenantID string) model.Settings
	// Save 校验后保存，并使缓存失效
	Save(ctx context.Context, settings *model.TenantSettings) error
}

type cachedSettingsProvider struct {
	repo     repository.SettingsRepository
	cache    cache.CacheService
	ttl      time.Duration
	defaults SettingsDefaults
	location *time.Location
}

func NewSettingsProvider(repo repository.SettingsRepository, c cache.CacheService, ttl time.Duration, defaults SettingsDefaults) SettingsProvider {
	loc, err := time.LoadLocation(defaults.Timezone)
	if err != nil {
		loc = time.UTC
	}
	if defaults.DoubleScanWindow <= 0 {
		defaults.DoubleScanWindow = 30 * time.Second
	}
	if !defaults.Policy.Valid() {
		defaults.Policy = model.PolicyWindow
	}
	return &cachedSettingsProvider{
		repo:     repo,
		cache:    c,
		ttl:      ttl,
		defaults: defaults,
		location: loc,
	}
}

func settingsKey(tenantID string) string {
	return "settings:" + tenantID
}

func (p *cachedSettingsProvider) Get(ctx context.Context, tenantID string) model.Settings {
	done := make(chan model.Settings, 1)
	go func() {
		done <- p.load(ctx, tenantID)
	}()
	select {
	case s := <-done:
		return s
	case <-ctx.Done():
		logger.Log.Warn("settings lookup timed out, using defaults", zap.String("tenant", tenantID), zap.Error(ctx.Err()))
		return p.resolve(nil)
	}
}

func (p *cachedSettingsProvider) load(ctx context.Context, tenantID string) model.Settings {
	key := settingsKey(tenantID)

	var stored model.TenantSettings
	err := p.cache.Get(ctx, key, &stored)
	if err == nil {
		return p.resolve(&stored)
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("settings cache read failed", zap.String("tenant", tenantID), zap.Error(err))
	}

	row, err := p.repo.GetByTenant(ctx, tenantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// 未配置也缓存，避免每次扫码都查库
		row = &model.TenantSettings{TenantID: tenantID}
	case err != nil:
		logger.Log.Warn("settings load failed, using defaults", zap.String("tenant", tenantID), zap.Error(err))
		return p.resolve(nil)
	}

	if err := p.cache.Set(ctx, key, row, p.ttl); err != nil {
		logger.Log.Warn("settings cache write failed", zap.String("tenant", tenantID), zap.Error(err))
	}
	return p.resolve(row)
}

// resolve 把存储的配置和默认值合并，非法字段逐项退回默认
func (p *cachedSettingsProvider) resolve(row *model.TenantSettings) model.Settings {
	s := model.Settings{
		Windows:          meal.DefaultWindows(),
		DoubleScanWindow: p.defaults.DoubleScanWindow,
		Policy:           p.defaults.Policy,
		Location:         p.location,
	}
	if row == nil {
		return s
	}

	if w := row.MealWindows.Data(); len(w) > 0 {
		s.Windows = w
	}
	if row.DoubleScanWindowSeconds > 0 {
		s.DoubleScanWindow = time.Duration(row.DoubleScanWindowSeconds) * time.Second
	}
	if row.DuplicatePolicy.Valid() {
		s.Policy = row.DuplicatePolicy
	}
	if row.Timezone != "" {
		if loc, err := time.LoadLocation(row.Timezone); err == nil {
			s.Location = loc
		} else {
			logger.Log.Warn("invalid tenant timezone", zap.String("tenant", row.TenantID), zap.String("timezone", row.Timezone))
		}
	}
	s.AllowedByPlan = row.AllowedMealTypesByPlan.Data()
	return s
}

func (p *cachedSettingsProvider) Save(ctx context.Context, settings *model.TenantSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if err := p.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := p.cache.Delete(ctx, settingsKey(settings.TenantID)); err != nil {
		logger.Log.Warn("settings cache invalidate failed", zap.String("tenant", settings.TenantID), zap.Error(err))
	}
	return nil
}

// ErrInvalidSettings 配置校验失败
var ErrInvalidSettings = errors.New("invalid settings")

// ValidateSettings 保存前校验；运行时解析不依赖这里的结果
func ValidateSettings(s *model.TenantSettings) error {
	if s.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidSettings)
	}
	if err := meal.ValidateWindows(s.MealWindows.Data()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.DoubleScanWindowSeconds < 0 {
		return fmt.Errorf("%w: double scan window must not be negative", ErrInvalidSettings)
	}
	if s.DuplicatePolicy != "" && !s.DuplicatePolicy.Valid() {
		return fmt.Errorf("%w: unknown duplicate policy %q", ErrInvalidSettings, s.DuplicatePolicy)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, s.Timezone)
		}
	}
	for plan, types := range s.AllowedMealTypesByPlan.Data() {
		for _, t := range types {
			if !t.Valid() {
				return fmt.Errorf("%w: plan %s allows unknown meal type %q", ErrInvalidSettings, plan, t)
			}
		}
	}
	return nil
}
