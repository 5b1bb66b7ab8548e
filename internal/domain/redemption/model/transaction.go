package model

import (
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/meal"
	baseModel "github.com/manmiddle614-crypto/backend/pkg/model"

	"gorm.io/datatypes"
)

// TransactionStatus 流水状态
type TransactionStatus string

const (
	TxnSuccess   TransactionStatus = "success"
	TxnBlocked   TransactionStatus = "blocked"
	TxnDuplicate TransactionStatus = "duplicate"
	TxnFailed    TransactionStatus = "failed"
)

// Source 扫码来源
type Source string

const (
	SourceLive    Source = "live"
	SourceOffline Source = "offline"
)

// MealTransaction 核销流水，只追加；除 SyncedAt 外创建后不再修改
// 也是“某餐别是否已核销”判断的唯一依据
type MealTransaction struct {
	baseModel.TenantModel
	CustomerID     string            `gorm:"type:uuid;index:idx_txn_lookup,priority:1;not null" json:"customerId"`
	SubscriptionID *string           `gorm:"type:uuid" json:"subscriptionId,omitempty"`
	MealType       meal.Type         `gorm:"type:varchar(16);index:idx_txn_lookup,priority:2" json:"mealType,omitempty"`
	Status         TransactionStatus `gorm:"type:varchar(16);index:idx_txn_lookup,priority:3;not null" json:"status"`
	Reason         Reason            `gorm:"type:varchar(32)" json:"reason,omitempty"`
	ScannerID      string            `gorm:"type:varchar(64)" json:"scannerId"`
	ClientScanID   *string           `gorm:"type:varchar(64)" json:"clientScanId,omitempty"` // 幂等键
	Source         Source            `gorm:"type:varchar(16);not null" json:"source"`
	ScannedAt      time.Time         `gorm:"index:idx_txn_lookup,priority:4;not null" json:"scannedAt"`
	DuplicateOf    *string           `gorm:"type:uuid" json:"duplicateOf,omitempty"`

	BalanceBefore datatypes.JSONType[BalanceSnapshot] `gorm:"type:jsonb" json:"balanceBefore"`
	BalanceAfter  datatypes.JSONType[BalanceSnapshot] `gorm:"type:jsonb" json:"balanceAfter"`
	Metadata      datatypes.JSONMap                   `gorm:"type:jsonb" json:"metadata,omitempty"`

	SyncedAt *time.Time `json:"syncedAt,omitempty"` // 离线批次回放写入时打标
}

func (MealTransaction) TableName() string { return "meal_transactions" }
