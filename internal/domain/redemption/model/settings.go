package model

import (
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"gorm.io/datatypes"
)

// DuplicatePolicy 重复扫码判定策略，按租户配置
type DuplicatePolicy string

const (
	// PolicyWindow 同餐别在短窗口内 (默认 30s) 的第二次扫码视为重复
	PolicyWindow DuplicatePolicy = "window"
	// PolicySameDay 同餐别当天 (租户时区) 只能核销一次
	PolicySameDay DuplicatePolicy = "same_day"
)

// Valid 是否为已知策略
func (p DuplicatePolicy) Valid() bool {
	return p == PolicyWindow || p == PolicySameDay
}

// TenantSettings 租户核销配置 (存库)
type TenantSettings struct {
	TenantID                string                                     `gorm:"primaryKey;type:uuid" json:"tenantId"`
	Timezone                string                                     `gorm:"type:varchar(64)" json:"timezone"`
	MealWindows             datatypes.JSONType[meal.Windows]           `gorm:"type:jsonb" json:"mealWindows"`
	DoubleScanWindowSeconds int                                        `json:"doubleScanWindowSeconds"`
	DuplicatePolicy         DuplicatePolicy                            `gorm:"type:varchar(16)" json:"duplicatePolicy"`
	AllowedMealTypesByPlan  datatypes.JSONType[map[string][]meal.Type] `gorm:"type:jsonb" json:"allowedMealTypesByPlan"`
	UpdatedAt               time.Time                                  `json:"updatedAt"`
}

func (TenantSettings) TableName() string { return "tenant_settings" }

// Settings 解析后的生效配置
type Settings struct {
	Windows          meal.Windows
	DoubleScanWindow time.Duration
	Policy           DuplicatePolicy
	AllowedByPlan    map[string][]meal.Type
	Location         *time.Location
}

// AllowedFor 套餐允许的餐别，nil 表示不限制
func (s Settings) AllowedFor(planID string) []meal.Type {
	if planID == "" || s.AllowedByPlan == nil {
		return nil
	}
	return s.AllowedByPlan[planID]
}

// DuplicateRange 以 at 为基准的重复判定区间 [from, to]
// window 策略取 at 前后各一个窗口 (离线回放时后到的扫码也可能时间更早)；same_day 取租户时区当天
func (s Settings) DuplicateRange(at time.Time) (time.Time, time.Time) {
	if s.Policy == PolicySameDay {
		local := at.In(s.Location)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Location)
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return at.Add(-s.DoubleScanWindow), at.Add(s.DoubleScanWindow)
}
