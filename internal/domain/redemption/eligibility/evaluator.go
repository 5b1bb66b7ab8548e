// Package eligibility 判断一次扫码能否核销，只依赖调用方传入的快照，不做任何 I/O
package eligibility

import (
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/pkg/meal"
)

// Input 调用方准备好的全部状态
type Input struct {
	Customer     *model.Customer     // nil: 客户不存在
	Subscription *model.Subscription // nil: 没有有效套餐
	MealType     meal.Type           // 空: 当前不在任何餐段
	At           time.Time
	// AllowedMealTypes 套餐允许的餐别，nil 表示不限制
	AllowedMealTypes []meal.Type
	// Recent 同客户同餐别落在重复判定区间内的成功流水
	Recent *model.MealTransaction
}

// Decision 判定结果
type Decision struct {
	Allowed     bool
	Reason      model.Reason
	DuplicateOf string
}

func deny(r model.Reason) Decision {
	return Decision{Reason: r}
}

// Evaluate 依次检查，第一个不满足的条件决定拒绝原因
func Evaluate(in Input) Decision {
	if in.Customer == nil {
		return deny(model.ReasonCustomerNotFound)
	}
	if !in.Customer.IsActive {
		return deny(model.ReasonCustomerInactive)
	}

	sub := in.Subscription
	if sub == nil || !sub.IsActive || !sub.ValidAt(in.At) {
		return deny(model.ReasonNoActiveSubscription)
	}
	if sub.PausedAt(in.At) {
		return deny(model.ReasonSubscriptionPaused)
	}

	if in.MealType == "" {
		return deny(model.ReasonOutsideMealWindow)
	}
	if in.AllowedMealTypes != nil && !contains(in.AllowedMealTypes, in.MealType) {
		return deny(model.ReasonMealTypeNotAllowed)
	}

	if in.Recent != nil {
		return Decision{Reason: model.ReasonDuplicateScan, DuplicateOf: in.Recent.ID}
	}

	if sub.Remaining(in.MealType) <= 0 || sub.TotalRemaining <= 0 {
		return deny(model.ReasonNoMealsRemaining)
	}
	return Decision{Allowed: true}
}

func contains(types []meal.Type, t meal.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
