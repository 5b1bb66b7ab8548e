package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 记录不存在 (或不属于该租户)
	ErrNotFound = errors.New("record not found")
	// ErrBalanceConflict 条件扣减未命中：余额已用完、套餐已停用或同餐别刚被核销
	ErrBalanceConflict = errors.New("balance precondition failed")
	// ErrDuplicateClientScan 同一幂等键已有成功流水
	ErrDuplicateClientScan = errors.New("client scan id already redeemed")
)

const uniqueViolation = "23505"

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
