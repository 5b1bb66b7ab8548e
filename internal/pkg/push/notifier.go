package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MealEvent 核销成功事件
type MealEvent struct {
	TenantID      string    `json:"tenantId"`
	CustomerID    string    `json:"customerId"`
	TransactionID string    `json:"transactionId"`
	MealType      string    `json:"mealType"`
	Remaining     int       `json:"remaining"` // 该餐别剩余份数
	ScannedAt     time.Time `json:"scannedAt"`
}

// Notifier 核销成功后的通知渠道
// 调用方不关心结果，失败只记录日志，不影响核销
type Notifier interface {
	NotifyMealRedeemed(ctx context.Context, event MealEvent) error
}

// MultiNotifier 依次调用所有渠道，汇总错误
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyMealRedeemed(ctx context.Context, event MealEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyMealRedeemed(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// content 各推送渠道共用的标题、正文和附加数据
func content(event MealEvent) (title, body string, data map[string]string) {
	title = "Meal redeemed"
	body = fmt.Sprintf("%s redeemed, %d left", event.MealType, event.Remaining)
	data = map[string]string{
		"type":          "meal_redeemed",
		"tenantId":      event.TenantID,
		"transactionId": event.TransactionID,
		"mealType":      event.MealType,
		"remaining":     strconv.Itoa(event.Remaining),
		"scannedAt":     event.ScannedAt.UTC().Format(time.RFC3339),
	}
	return title, body, data
}
