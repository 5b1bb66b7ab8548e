package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrMissingTenant 多租户实体写入时没有 tenant_id
var ErrMissingTenant = errors.New("tenant id is required")

// BaseModel UUID 主键，库里同样有 gen_random_uuid() 默认值
type BaseModel struct {
	ID        string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate 在应用侧生成 id，事务提交前即可引用
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// TenantModel 多租户实体，所有查询都必须带 tenant_id
type TenantModel struct {
	BaseModel
	TenantID string `gorm:"type:uuid;index;not null" json:"tenantId"`
}

// BeforeCreate 拒绝没有租户的写入
func (t *TenantModel) BeforeCreate(tx *gorm.DB) error {
	if t.TenantID == "" {
		return ErrMissingTenant
	}
	return t.BaseModel.BeforeCreate(tx)
}
