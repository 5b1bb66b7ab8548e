package model

import (
	baseModel "github.com/manmiddle614-crypto/backend/pkg/model"
)

// Customer 租户下的就餐客户，核销流程只读
type Customer struct {
	baseModel.TenantModel
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	IsActive bool   `gorm:"not null" json:"isActive"`
	QRID     string `gorm:"column:qr_id;type:varchar(64);not null" json:"qrId"` // 当前有效的餐卡标识，补卡后旧卡失效
}

func (Customer) TableName() string { return "customers" }
