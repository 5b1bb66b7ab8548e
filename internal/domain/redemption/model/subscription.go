package model

import (
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/meal"
	baseModel "github.com/manmiddle614-crypto/backend/pkg/model"
)

// Subscription 客户的预付套餐余额
// 余额只允许通过条件扣减修改，各计数列都有 >= 0 的约束
type Subscription struct {
	baseModel.TenantModel
	CustomerID      string `gorm:"type:uuid;index;not null" json:"customerId"`
	PlanID          string `gorm:"type:varchar(64)" json:"planId"`
	PlanName        string `gorm:"type:varchar(100)" json:"planName"`
	PerMealTracking bool   `gorm:"not null" json:"perMealTracking"` // false: 老套餐只有总份数

	TotalMeals         int `gorm:"not null" json:"totalMeals"`
	TotalRemaining     int `gorm:"not null" json:"totalRemaining"`
	BreakfastRemaining int `gorm:"not null" json:"breakfastRemaining"`
	LunchRemaining     int `gorm:"not null" json:"lunchRemaining"`
	DinnerRemaining    int `gorm:"not null" json:"dinnerRemaining"`
	SnackRemaining     int `gorm:"not null" json:"snackRemaining"`

	// 每个餐别最近一次核销时间，条件扣减用它挡住并发的重复扫码
	LastBreakfastAt *time.Time `json:"-"`
	LastLunchAt     *time.Time `json:"-"`
	LastDinnerAt    *time.Time `json:"-"`
	LastSnackAt     *time.Time `json:"-"`

	IsActive    bool       `gorm:"index;not null" json:"isActive"`
	ValidFrom   time.Time  `gorm:"not null" json:"validFrom"`
	ValidUntil  time.Time  `gorm:"not null" json:"validUntil"`
	PausedFrom  *time.Time `json:"pausedFrom,omitempty"`
	PausedUntil *time.Time `json:"pausedUntil,omitempty"` // 为空表示无限期暂停
}

func (Subscription) TableName() string { return "meal_subscriptions" }

// Remaining 某餐别可用份数；老套餐返回总份数
func (s *Subscription) Remaining(t meal.Type) int {
	if !s.PerMealTracking {
		return s.TotalRemaining
	}
	switch t {
	case meal.Breakfast:
		return s.BreakfastRemaining
	case meal.Lunch:
		return s.LunchRemaining
	case meal.Dinner:
		return s.DinnerRemaining
	case meal.Snack:
		return s.SnackRemaining
	}
	return 0
}

// ValidAt 是否在有效期内 (首尾包含)
func (s *Subscription) ValidAt(at time.Time) bool {
	return !at.Before(s.ValidFrom) && !at.After(s.ValidUntil)
}

// PausedAt 是否处于暂停期
func (s *Subscription) PausedAt(at time.Time) bool {
	if s.PausedFrom == nil || at.Before(*s.PausedFrom) {
		return false
	}
	return s.PausedUntil == nil || at.Before(*s.PausedUntil)
}

// Exhausted 所有余额用完；分餐别套餐任一餐别有余额都不算用完
func (s *Subscription) Exhausted() bool {
	if s.TotalRemaining <= 0 {
		return true
	}
	return s.PerMealTracking &&
		s.BreakfastRemaining <= 0 && s.LunchRemaining <= 0 &&
		s.DinnerRemaining <= 0 && s.SnackRemaining <= 0
}

// ExhaustedCondition 与 Exhausted 等价的 SQL 条件
const ExhaustedCondition = `(total_remaining <= 0 OR (per_meal_tracking AND breakfast_remaining <= 0 AND lunch_remaining <= 0 AND dinner_remaining <= 0 AND snack_remaining <= 0))`

// Snapshot 当前余额快照
func (s *Subscription) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		Total:     s.TotalRemaining,
		Breakfast: s.BreakfastRemaining,
		Lunch:     s.LunchRemaining,
		Dinner:    s.DinnerRemaining,
		Snack:     s.SnackRemaining,
		PerMeal:   s.PerMealTracking,
	}
}

// BalanceSnapshot 流水里记录的扣减前后余额
type BalanceSnapshot struct {
	PerMeal   bool `json:"perMeal"`
	Total     int  `json:"total"`
	Breakfast int  `json:"breakfast"`
	Lunch     int  `json:"lunch"`
	Dinner    int  `json:"dinner"`
	Snack     int  `json:"snack"`
}

// Remaining 某餐别剩余份数，老套餐返回总份数
func (b BalanceSnapshot) Remaining(t meal.Type) int {
	if !b.PerMeal {
		return b.Total
	}
	switch t {
	case meal.Breakfast:
		return b.Breakfast
	case meal.Lunch:
		return b.Lunch
	case meal.Dinner:
		return b.Dinner
	case meal.Snack:
		return b.Snack
	}
	return b.Total
}

// Restore 在扣减后快照上加回一份，得到扣减前快照
func (b BalanceSnapshot) Restore(t meal.Type) BalanceSnapshot {
	b.Total++
	if !b.PerMeal {
		return b
	}
	switch t {
	case meal.Breakfast:
		b.Breakfast++
	case meal.Lunch:
		b.Lunch++
	case meal.Dinner:
		b.Dinner++
	case meal.Snack:
		b.Snack++
	}
	return b
}

// RemainingColumn 餐别对应的余额列
func RemainingColumn(t meal.Type) string {
	return string(t) + "_remaining"
}

// LastRedeemedColumn 餐别对应的最近核销时间列
func LastRedeemedColumn(t meal.Type) string {
	return "last_" + string(t) + "_at"
}
