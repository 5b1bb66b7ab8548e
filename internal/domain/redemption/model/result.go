package model

import "github.com/manmiddle614-crypto/backend/pkg/meal"

// ResultStatus 核销结果
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusBlocked ResultStatus = "blocked" // 重复类拒绝
	StatusFailed  ResultStatus = "failed"  // 其他拒绝和系统错误
)

// RedemptionResult 单次核销结果
type RedemptionResult struct {
	Status           ResultStatus `json:"status"`
	MealType         meal.Type    `json:"mealType,omitempty"`
	BalanceRemaining int          `json:"balanceRemaining"`
	TransactionID    string       `json:"transactionId,omitempty"`
	CustomerID       string       `json:"customerId,omitempty"`
	Reason           Reason       `json:"reason,omitempty"`
	Message          string       `json:"message,omitempty"`
	DuplicateOf      string       `json:"duplicateOf,omitempty"` // 重复扫码时指向原流水
	Replayed         bool         `json:"replayed,omitempty"`    // 幂等重放，返回的是原结果
	Retryable        bool         `json:"retryable,omitempty"`
}

// Denied 构造拒绝结果
func Denied(reason Reason) *RedemptionResult {
	status := StatusFailed
	if reason.IsDuplicate() {
		status = StatusBlocked
	}
	return &RedemptionResult{
		Status:    status,
		Reason:    reason,
		Message:   reason.Message(),
		Retryable: reason == ReasonSystemError,
	}
}

// Succeeded 从成功流水构造结果
func Succeeded(txn *MealTransaction, replayed bool) *RedemptionResult {
	return &RedemptionResult{
		Status:           StatusSuccess,
		MealType:         txn.MealType,
		BalanceRemaining: txn.BalanceAfter.Data().Remaining(txn.MealType),
		TransactionID:    txn.ID,
		CustomerID:       txn.CustomerID,
		Replayed:         replayed,
	}
}
