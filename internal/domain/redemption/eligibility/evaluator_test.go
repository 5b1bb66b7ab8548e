package eligibility

import (
	"testing"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

func activeCustomer() *model.Customer {
	c := &model.Customer{Name: "Ravi", IsActive: true, QRID: "qr-1"}
	c.ID = "cust-1"
	return c
}

func lunchPlan() *model.Subscription {
	s := &model.Subscription{
		PerMealTracking: true,
		TotalRemaining:  10,
		LunchRemaining:  5,
		DinnerRemaining: 5,
		IsActive:        true,
		ValidFrom:       now.AddDate(0, 0, -10),
		ValidUntil:      now.AddDate(0, 0, 20),
	}
	s.ID = "sub-1"
	return s
}

func baseInput() Input {
	return Input{
		Customer:     activeCustomer(),
		Subscription: lunchPlan(),
		MealType:     meal.Lunch,
		At:           now,
	}
}

func TestEvaluate(t *testing.T) {
	pausedFrom := now.Add(-time.Hour)
	pausedUntil := now.Add(time.Hour)
	pausedEnded := now.Add(-time.Minute)

	tests := []struct {
		name   string
		modify func(in *Input)
		want   model.Reason
	}{
		{"allow", func(in *Input) {}, ""},
		{"customer missing", func(in *Input) { in.Customer = nil }, model.ReasonCustomerNotFound},
		{"customer inactive", func(in *Input) { in.Customer.IsActive = false }, model.ReasonCustomerInactive},
		{"no subscription", func(in *Input) { in.Subscription = nil }, model.ReasonNoActiveSubscription},
		{"subscription deactivated", func(in *Input) { in.Subscription.IsActive = false }, model.ReasonNoActiveSubscription},
		{"subscription not started", func(in *Input) { in.Subscription.ValidFrom = now.Add(time.Hour) }, model.ReasonNoActiveSubscription},
		{"subscription lapsed", func(in *Input) { in.Subscription.ValidUntil = now.Add(-time.Second) }, model.ReasonNoActiveSubscription},
		{"open ended pause", func(in *Input) { in.Subscription.PausedFrom = &pausedFrom }, model.ReasonSubscriptionPaused},
		{"bounded pause", func(in *Input) {
			in.Subscription.PausedFrom = &pausedFrom
			in.Subscription.PausedUntil = &pausedUntil
		}, model.ReasonSubscriptionPaused},
		{"pause already over", func(in *Input) {
			in.Subscription.PausedFrom = &pausedFrom
			in.Subscription.PausedUntil = &pausedEnded
		}, ""},
		{"outside meal window", func(in *Input) { in.MealType = "" }, model.ReasonOutsideMealWindow},
		{"plan restricts meal", func(in *Input) {
			in.MealType = meal.Dinner
			in.AllowedMealTypes = []meal.Type{meal.Breakfast, meal.Lunch}
		}, model.ReasonMealTypeNotAllowed},
		{"plan allows meal", func(in *Input) { in.AllowedMealTypes = []meal.Type{meal.Lunch} }, ""},
		{"duplicate", func(in *Input) {
			in.Recent = &model.MealTransaction{}
			in.Recent.ID = "txn-0"
		}, model.ReasonDuplicateScan},
		{"meal balance exhausted", func(in *Input) { in.Subscription.LunchRemaining = 0 }, model.ReasonNoMealsRemaining},
		{"legacy plan uses total", func(in *Input) {
			in.Subscription.PerMealTracking = false
			in.Subscription.LunchRemaining = 0
		}, ""},
		{"legacy plan exhausted", func(in *Input) {
			in.Subscription.PerMealTracking = false
			in.Subscription.TotalRemaining = 0
		}, model.ReasonNoMealsRemaining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.modify(&in)

			got := Evaluate(in)
			if tt.want == "" {
				assert.True(t, got.Allowed)
				assert.Empty(t, got.Reason)
				return
			}
			assert.False(t, got.Allowed)
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}

func TestEvaluateFirstFailureWins(t *testing.T) {
	in := baseInput()
	in.Customer.IsActive = false
	in.Subscription = nil
	in.MealType = ""
	assert.Equal(t, model.ReasonCustomerInactive, Evaluate(in).Reason)

	in = baseInput()
	in.AllowedMealTypes = []meal.Type{meal.Breakfast}
	in.Recent = &model.MealTransaction{}
	in.Subscription.LunchRemaining = 0
	assert.Equal(t, model.ReasonMealTypeNotAllowed, Evaluate(in).Reason)

	in = baseInput()
	in.Recent = &model.MealTransaction{}
	in.Recent.ID = "txn-9"
	in.Subscription.LunchRemaining = 0
	got := Evaluate(in)
	assert.Equal(t, model.ReasonDuplicateScan, got.Reason)
	assert.Equal(t, "txn-9", got.DuplicateOf)
}
