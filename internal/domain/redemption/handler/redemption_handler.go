package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/service"
	"github.com/manmiddle614-crypto/backend/internal/pkg/middleware"
	"github.com/manmiddle614-crypto/backend/pkg/meal"
	"github.com/manmiddle614-crypto/backend/pkg/response"
	"github.com/manmiddle614-crypto/backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/datatypes"
)

type RedemptionHandler struct {
	service      service.RedemptionService
	settings     service.SettingsProvider
	maxBatchSize int
}

func NewRedemptionHandler(s service.RedemptionService, settings service.SettingsProvider, maxBatchSize int) *RedemptionHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &RedemptionHandler{service: s, settings: settings, maxBatchSize: maxBatchSize}
}

// 与 meal_transactions.client_scan_id 列宽一致
const maxClientScanIDLen = 64

// ScanInput 扫码核销输入
type ScanInput struct {
	Credential   string                 `json:"credential" binding:"required"`
	MealType     string                 `json:"mealType"` // 仅管理员可指定
	ClientScanID string                 `json:"clientScanId" binding:"omitempty,max=64"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// SyncScanInput 离线扫码记录
type SyncScanInput struct {
	Credential      string    `json:"credential" binding:"required"`
	ClientTimestamp time.Time `json:"clientTimestamp" binding:"required"`
	ClientID        string    `json:"clientId" binding:"required,max=64"`
}

// SyncInput 离线批次输入
type SyncInput struct {
	Scans    []SyncScanInput        `json:"scans" binding:"required,min=1,dive"`
	Metadata map[string]interface{} `json:"metadata"`
}

// TransactionQuery 流水查询参数
type TransactionQuery struct {
	utils.Pagination
	CustomerID string `form:"customerId"`
	Status     string `form:"status" binding:"omitempty,oneof=success blocked duplicate failed"`
}

// SettingsInput 租户核销配置
type SettingsInput struct {
	Timezone                string                 `json:"timezone"`
	MealWindows             meal.Windows           `json:"mealWindows"`
	DoubleScanWindowSeconds int                    `json:"doubleScanWindowSeconds" binding:"min=0"`
	DuplicatePolicy         string                 `json:"duplicatePolicy" binding:"omitempty,oneof=window same_day"`
	AllowedMealTypesByPlan  map[string][]meal.Type `json:"allowedMealTypesByPlan"`
}

// SettingsView 生效中的配置
type SettingsView struct {
	Timezone                string                 `json:"timezone"`
	MealWindows             meal.Windows           `json:"mealWindows"`
	DoubleScanWindowSeconds int                    `json:"doubleScanWindowSeconds"`
	DuplicatePolicy         model.DuplicatePolicy  `json:"duplicatePolicy"`
	AllowedMealTypesByPlan  map[string][]meal.Type `json:"allowedMealTypesByPlan"`
}

var reasonCodes = map[model.Reason]int{
	model.ReasonInvalidFormat:        response.ErrCredentialInvalid,
	model.ReasonInvalidSignature:     response.ErrCredentialInvalid,
	model.ReasonWrongType:            response.ErrCredentialInvalid,
	model.ReasonTenantMismatch:       response.ErrCredentialInvalid,
	model.ReasonExpired:              response.ErrCredentialExpired,
	model.ReasonCredentialRevoked:    response.ErrCredentialRevoked,
	model.ReasonCredentialReplayed:   response.ErrCredentialRevoked,
	model.ReasonCustomerNotFound:     response.ErrCustomerUnavailable,
	model.ReasonCustomerInactive:     response.ErrCustomerUnavailable,
	model.ReasonNoActiveSubscription: response.ErrNoSubscription,
	model.ReasonSubscriptionPaused:   response.ErrSubscriptionPaused,
	model.ReasonOutsideMealWindow:    response.ErrOutsideMealWindow,
	model.ReasonMealTypeNotAllowed:   response.ErrMealNotAllowed,
	model.ReasonDuplicateScan:        response.ErrDuplicateScan,
	model.ReasonNoMealsRemaining:     response.ErrNoMealsRemaining,
}

// writeResult 拒绝返回 HTTP 200 + 业务码；系统错误返回 503，客户端可重试
func writeResult(c *gin.Context, res *model.RedemptionResult) {
	switch {
	case res.Status == model.StatusSuccess:
		response.Success(c, res)
	case res.Reason == model.ReasonSystemError:
		response.ErrorWithData(c, http.StatusServiceUnavailable, response.ErrRetryLater, res.Message, res)
	default:
		code, ok := reasonCodes[res.Reason]
		if !ok {
			code = response.CodeError
		}
		response.FailWithData(c, code, res.Message, res)
	}
}

func requestMetadata(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	md := make(map[string]interface{}, len(extra)+2)
	for k, v := range extra {
		md[k] = v
	}
	if id := middleware.TraceID(c.Request.Context()); id != "" {
		md["traceId"] = id
	}
	if ua := c.Request.UserAgent(); ua != "" {
		md["userAgent"] = ua
	}
	return md
}

// Scan 扫码核销
// @Summary 扫码核销
// @Tags Redemption
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键，未传 clientScanId 时使用"
// @Param input body ScanInput true "扫码内容"
// @Success 200 {object} model.RedemptionResult
// @Failure 503 {object} model.RedemptionResult
// @Router /redemptions/scan [post]
func (h *RedemptionHandler) Scan(c *gin.Context) {
	var input ScanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	var forced meal.Type
	if input.MealType != "" {
		if !middleware.IsAdmin(c) {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Only admins can choose the meal type")
			return
		}
		t, err := meal.ParseType(input.MealType)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
		forced = t
	}

	clientScanID := input.ClientScanID
	if clientScanID == "" {
		clientScanID = c.GetHeader("Idempotency-Key")
	}
	if len(clientScanID) > maxClientScanIDLen {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Idempotency-Key too long")
		return
	}

	res := h.service.Redeem(c.Request.Context(), service.RedeemRequest{
		TenantID:     c.GetString(middleware.CtxTenantID),
		ScannerID:    c.GetString(middleware.CtxStaffID),
		Credential:   input.Credential,
		MealType:     forced,
		ClientScanID: clientScanID,
		Source:       model.SourceLive,
		Metadata:     requestMetadata(c, input.Metadata),
	})
	writeResult(c, res)
}

// Sync 离线批次同步
// @Summary 离线扫码批量同步
// @Tags Redemption
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body SyncInput true "离线扫码记录"
// @Success 200 {object} service.BatchResult
// @Router /redemptions/sync [post]
func (h *RedemptionHandler) Sync(c *gin.Context) {
	var input SyncInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if len(input.Scans) > h.maxBatchSize {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Too many scans in one batch")
		return
	}

	scans := make([]service.BatchScan, 0, len(input.Scans))
	for _, s := range input.Scans {
		scans = append(scans, service.BatchScan{
			Credential:      s.Credential,
			ClientTimestamp: s.ClientTimestamp,
			ClientID:        s.ClientID,
		})
	}

	var raw []byte
	if body, ok := c.Get(gin.BodyBytesKey); ok {
		raw, _ = body.([]byte)
	}

	result := h.service.RedeemBatch(c.Request.Context(), service.BatchRequest{
		TenantID:  c.GetString(middleware.CtxTenantID),
		ScannerID: c.GetString(middleware.CtxStaffID),
		Scans:     scans,
		Metadata:  requestMetadata(c, input.Metadata),
		Raw:       raw,
	})
	response.Success(c, result)
}

// ListTransactions 核销流水
// @Summary 核销流水查询
// @Tags Redemption
// @Produce json
// @Security BearerAuth
// @Param customerId query string false "客户ID"
// @Param status query string false "流水状态"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} utils.PageResult
// @Router /redemptions/transactions [get]
func (h *RedemptionHandler) ListTransactions(c *gin.Context) {
	var q TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	page, err := h.service.ListTransactions(c.Request.Context(), repository.TransactionFilter{
		TenantID:   c.GetString(middleware.CtxTenantID),
		CustomerID: q.CustomerID,
		Status:     model.TransactionStatus(q.Status),
	}, q.Pagination)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to load transactions")
		return
	}
	response.Success(c, page)
}

// GetSettings 当前生效的核销配置
// @Summary 查询核销配置
// @Tags Redemption
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SettingsView
// @Router /redemptions/settings [get]
func (h *RedemptionHandler) GetSettings(c *gin.Context) {
	s := h.settings.Get(c.Request.Context(), c.GetString(middleware.CtxTenantID))
	response.Success(c, SettingsView{
		Timezone:                s.Location.String(),
		MealWindows:             s.Windows,
		DoubleScanWindowSeconds: int(s.DoubleScanWindow / time.Second),
		DuplicatePolicy:         s.Policy,
		AllowedMealTypesByPlan:  s.AllowedByPlan,
	})
}

// UpdateSettings 保存核销配置 (管理员)
// @Summary 更新核销配置
// @Tags Redemption
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body SettingsInput true "核销配置"
// @Success 200 {string} string "success"
// @Router /redemptions/settings [put]
func (h *RedemptionHandler) UpdateSettings(c *gin.Context) {
	var input SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	err := h.settings.Save(c.Request.Context(), &model.TenantSettings{
		TenantID:                c.GetString(middleware.CtxTenantID),
		Timezone:                input.Timezone,
		MealWindows:             datatypes.NewJSONType(input.MealWindows),
		DoubleScanWindowSeconds: input.DoubleScanWindowSeconds,
		DuplicatePolicy:         model.DuplicatePolicy(input.DuplicatePolicy),
		AllowedMealTypesByPlan:  datatypes.NewJSONType(input.AllowedMealTypesByPlan),
	})
	if errors.Is(err, service.ErrInvalidSettings) {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to save settings")
		return
	}
	response.Success(c, "Settings saved")
}
