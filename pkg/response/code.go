package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 鉴权错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 核销模块错误 200xx：凭证问题
	ErrCredentialInvalid = 20001
	ErrCredentialExpired = 20002
	ErrCredentialRevoked = 20003

	// 核销模块错误 201xx：客户/套餐状态
	ErrCustomerUnavailable = 20101
	ErrNoSubscription      = 20102
	ErrSubscriptionPaused  = 20103

	// 核销模块错误 202xx：规则拒绝
	ErrOutsideMealWindow = 20201
	ErrMealNotAllowed    = 20202
	ErrDuplicateScan     = 20203
	ErrNoMealsRemaining  = 20204

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrRetryLater      = 50004
)
