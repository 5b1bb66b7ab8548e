package repository

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"

	"github.com/jmoiron/sqlx"
)

// SweepRepository 维护任务，直接走 sqlx
type SweepRepository interface {
	// DeactivateLapsed 停用余额为 0 或已过期的套餐，返回影响行数
	DeactivateLapsed(ctx context.Context, now time.Time) (int64, error)
	// CountActive 每个租户仍有效的套餐数
	CountActive(ctx context.Context) (map[string]int64, error)
}

type sweepRepository struct {
	db *sqlx.DB
}

func NewSweepRepository(db *sqlx.DB) SweepRepository {
	return &sweepRepository{db: db}
}

var deactivateLapsedSQL = `
UPDATE meal_subscriptions
   SET is_active = false, updated_at = $1
 WHERE is_active = true
   AND deleted_at IS NULL
   AND (` + model.ExhaustedCondition + ` OR valid_until < $1)`

func (r *sweepRepository) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deactivateLapsedSQL, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type tenantCount struct {
	TenantID string `db:"tenant_id"`
	Active   int64  `db:"active"`
}

const countActiveSQL = `
SELECT tenant_id, COUNT(*) AS active
  FROM meal_subscriptions
 WHERE is_active = true AND deleted_at IS NULL
 GROUP BY tenant_id`

func (r *sweepRepository) CountActive(ctx context.Context) (map[string]int64, error) {
	var rows []tenantCount
	if err := r.db.SelectContext(ctx, &rows, countActiveSQL); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.TenantID] = row.Active
	}
	return out, nil
}
