package model

// Reason 拒绝原因码，对外稳定，客户端按它分支
type Reason string

const (
	// 凭证问题，客户端可纠正，服务端不重试
	ReasonInvalidFormat      Reason = "invalid_format"
	ReasonInvalidSignature   Reason = "invalid_signature"
	ReasonExpired            Reason = "expired"
	ReasonWrongType          Reason = "wrong_type"
	ReasonCredentialRevoked  Reason = "credential_revoked"
	ReasonCredentialReplayed Reason = "credential_replayed"
	ReasonTenantMismatch     Reason = "tenant_mismatch"

	// 客户/套餐状态
	ReasonCustomerNotFound     Reason = "customer_not_found"
	ReasonCustomerInactive     Reason = "customer_inactive"
	ReasonNoActiveSubscription Reason = "no_active_subscription"
	ReasonSubscriptionPaused   Reason = "subscription_paused"

	// 规则拒绝
	ReasonOutsideMealWindow  Reason = "outside_meal_window"
	ReasonMealTypeNotAllowed Reason = "meal_type_not_allowed"
	ReasonDuplicateScan      Reason = "duplicate_scan"
	ReasonNoMealsRemaining   Reason = "no_meals_remaining"

	// 存储超时/不可用，可重试
	ReasonSystemError Reason = "system_error"
)

var messages = map[Reason]string{
	ReasonInvalidFormat:        "QR code is not recognised",
	ReasonInvalidSignature:     "QR code is not valid",
	ReasonExpired:              "QR code has expired, please refresh it",
	ReasonWrongType:            "This QR code cannot be used for meals",
	ReasonCredentialRevoked:    "This QR code was replaced, use the latest one",
	ReasonCredentialReplayed:   "This QR link was already used",
	ReasonTenantMismatch:       "QR code belongs to another mess",
	ReasonCustomerNotFound:     "Customer not found",
	ReasonCustomerInactive:     "Customer account is inactive",
	ReasonNoActiveSubscription: "No active meal plan",
	ReasonSubscriptionPaused:   "Meal plan is paused",
	ReasonOutsideMealWindow:    "No meal is being served right now",
	ReasonMealTypeNotAllowed:   "This meal is not included in the plan",
	ReasonDuplicateScan:        "Meal already redeemed",
	ReasonNoMealsRemaining:     "No meals remaining",
	ReasonSystemError:          "Something went wrong, please try again",
}

// Message 面向用户的简短说明，不包含任何内部错误信息
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return messages[ReasonSystemError]
}

// IsDuplicate 重复类拒绝，在批次统计里计为 blocked
func (r Reason) IsDuplicate() bool {
	return r == ReasonDuplicateScan || r == ReasonCredentialReplayed
}

// IsCredentialError 凭证类错误
func (r Reason) IsCredentialError() bool {
	switch r {
	case ReasonInvalidFormat, ReasonInvalidSignature, ReasonExpired, ReasonWrongType,
		ReasonCredentialRevoked, ReasonCredentialReplayed, ReasonTenantMismatch:
		return true
	}
	return false
}

// TransactionStatus 该原因落库时的流水状态
func (r Reason) TransactionStatus() TransactionStatus {
	switch {
	case r == ReasonDuplicateScan || r == ReasonCredentialReplayed:
		return TxnDuplicate
	case r == ReasonSystemError || r.IsCredentialError():
		return TxnFailed
	default:
		return TxnBlocked
	}
}

// ParseReason 把凭证解码错误等字符串还原成原因码，未知值归为 system_error
func ParseReason(s string) Reason {
	r := Reason(s)
	if _, ok := messages[r]; ok {
		return r
	}
	return ReasonSystemError
}
