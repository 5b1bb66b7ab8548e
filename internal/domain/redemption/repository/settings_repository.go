package repository

import (
	"context"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	GetByTenant(ctx context.Context, tenantID string) (*model.TenantSettings, error)
	Save(ctx context.Context, settings *model.TenantSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByTenant(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	var s model.TenantSettings
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// Save 按 tenant_id upsert
func (r *settingsRepository) Save(ctx context.Context, settings *model.TenantSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}
