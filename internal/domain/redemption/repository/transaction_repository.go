package repository

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionFilter 流水查询条件
type TransactionFilter struct {
	TenantID   string
	CustomerID string
	Status     model.TransactionStatus
	From, To   time.Time
}

type TransactionRepository interface {
	// Create 写入非成功流水 (拒绝/重复/失败审计)
	Create(ctx context.Context, txn *model.MealTransaction) error
	FindSuccessByClientScanID(ctx context.Context, tenantID, clientScanID string) (*model.MealTransaction, error)
	// FindSuccessBetween 同一客户同一餐别在 [from, to] 内最近的成功流水
	FindSuccessBetween(ctx context.Context, tenantID, customerID string, mealType meal.Type, from, to time.Time) (*model.MealTransaction, error)
	List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]model.MealTransaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func datatypesSnapshot(s model.BalanceSnapshot) datatypes.JSONType[model.BalanceSnapshot] {
	return datatypes.NewJSONType(s)
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.MealTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) FindSuccessByClientScanID(ctx context.Context, tenantID, clientScanID string) (*model.MealTransaction, error) {
	var txn model.MealTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_scan_id = ? AND status = ?", tenantID, clientScanID, model.TxnSuccess).
		First(&txn).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &txn, nil
}

func (r *transactionRepository) FindSuccessBetween(ctx context.Context, tenantID, customerID string, mealType meal.Type, from, to time.Time) (*model.MealTransaction, error) {
	var txn model.MealTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND meal_type = ? AND status = ?", tenantID, customerID, mealType, model.TxnSuccess).
		Where("scanned_at >= ? AND scanned_at <= ?", from, to).
		Order("scanned_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &txn, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]model.MealTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MealTransaction{}).Where("tenant_id = ?", filter.TenantID)
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("scanned_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("scanned_at <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []model.MealTransaction
	if err := q.Order("scanned_at DESC").Offset(offset).Limit(limit).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
