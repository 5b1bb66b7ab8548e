package repository

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedeemCommand 一次扣减所需的全部前置条件
type RedeemCommand struct {
	TenantID       string
	SubscriptionID string
	MealType       meal.Type
	PerMeal        bool
	At             time.Time
	// 同餐别已有核销时间落在 [DuplicateFrom, DuplicateTo] 内则不扣减
	DuplicateFrom time.Time
	DuplicateTo   time.Time
	// Txn 成功流水，与扣减在同一事务内写入；余额快照由仓储填充
	Txn *model.MealTransaction
}

type SubscriptionRepository interface {
	// FindActive 返回 at 时刻有效的套餐，多个时取最近更新的
	FindActive(ctx context.Context, tenantID, customerID string, at time.Time) (*model.Subscription, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.Subscription, error)
	// Redeem 条件扣减一份并写入成功流水，返回扣减后的套餐
	Redeem(ctx context.Context, cmd RedeemCommand) (*model.Subscription, error)
	// DeactivateIfExhausted 余额为 0 时停用，返回是否有变更
	DeactivateIfExhausted(ctx context.Context, tenantID, id string) (bool, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindActive(ctx context.Context, tenantID, customerID string, at time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND is_active = ?", tenantID, customerID, true).
		Where("valid_from <= ? AND valid_until >= ?", at, at).
		Order("updated_at DESC, id DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, tenantID, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&sub).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// Redeem 单条 UPDATE ... WHERE <余额> > 0 RETURNING *，未命中说明被并发请求抢先
// 扣减与成功流水在同一事务提交，不会出现扣了余额没有流水的情况
func (r *subscriptionRepository) Redeem(ctx context.Context, cmd RedeemCommand) (*model.Subscription, error) {
	var after model.Subscription
	lastCol := model.LastRedeemedColumn(cmd.MealType)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&after).
			Clauses(clause.Returning{}).
			Where("id = ? AND tenant_id = ? AND is_active = ?", cmd.SubscriptionID, cmd.TenantID, true).
			Where("total_remaining > 0").
			Where("("+lastCol+" IS NULL OR "+lastCol+" < ? OR "+lastCol+" > ?)", cmd.DuplicateFrom, cmd.DuplicateTo)

		updates := map[string]interface{}{
			"total_remaining": gorm.Expr("total_remaining - 1"),
			lastCol:           gorm.Expr("GREATEST(COALESCE("+lastCol+", ?), ?)", cmd.At, cmd.At),
			"updated_at":      time.Now(),
		}
		if cmd.PerMeal {
			col := model.RemainingColumn(cmd.MealType)
			q = q.Where(col + " > 0")
			updates[col] = gorm.Expr(col + " - 1")
		}

		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBalanceConflict
		}

		snapshot := after.Snapshot()
		cmd.Txn.BalanceAfter = datatypesSnapshot(snapshot)
		cmd.Txn.BalanceBefore = datatypesSnapshot(snapshot.Restore(cmd.MealType))
		subID := after.ID
		cmd.Txn.SubscriptionID = &subID
		cmd.Txn.TenantID = cmd.TenantID

		if err := tx.Create(cmd.Txn).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateClientScan
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func (r *subscriptionRepository) DeactivateIfExhausted(ctx context.Context, tenantID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND tenant_id = ? AND is_active = ?", id, tenantID, true).
		Where(model.ExhaustedCondition).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}
