package service

import (
	"context"
	"errors"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/eligibility"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/internal/pkg/push"
	"github.com/manmiddle614-crypto/backend/internal/pkg/uploader"
	"github.com/manmiddle614-crypto/backend/internal/pkg/worker"
	"github.com/manmiddle614-crypto/backend/pkg/logger"
	"github.com/manmiddle614-crypto/backend/pkg/meal"
	"github.com/manmiddle614-crypto/backend/pkg/metrics"
	"github.com/manmiddle614-crypto/backend/pkg/qrtoken"
	"github.com/manmiddle614-crypto/backend/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// RedeemRequest 单次扫码
type RedeemRequest struct {
	TenantID     string // 扫码员所属租户，来自 JWT
	ScannerID    string
	Credential   string
	MealType     meal.Type // 管理员手动指定餐别，空则按时段解析
	ClientScanID string    // 幂等键
	ScannedAt    time.Time // 离线扫码的客户端时间，零值取当前时间
	Source       model.Source
	Metadata     map[string]interface{}
}

type RedemptionService interface {
	Redeem(ctx context.Context, req RedeemRequest) *model.RedemptionResult
	RedeemBatch(ctx context.Context, req BatchRequest) *BatchResult
	ListTransactions(ctx context.Context, filter repository.TransactionFilter, page utils.Pagination) (*utils.PageResult, error)
}

// Dependencies 核销服务依赖
type Dependencies struct {
	Customers     repository.CustomerRepository
	Subscriptions repository.SubscriptionRepository
	Transactions  repository.TransactionRepository
	Settings      SettingsProvider
	Nonces        NonceStore
	Notifier      push.Notifier     // 可为空
	Archiver      uploader.Archiver // 可为空
	Workers       worker.Dispatcher
	Metrics       *metrics.MetricsCollector
}

// Options 核销服务参数
type Options struct {
	Secret       []byte
	StoreTimeout time.Duration // 单次存储调用超时
	Now          func() time.Time
}

type redemptionService struct {
	Dependencies
	secret       []byte
	storeTimeout time.Duration
	now          func() time.Time
}

func NewRedemptionService(deps Dependencies, opts Options) RedemptionService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Workers == nil {
		deps.Workers = worker.Inline{}
	}
	return &redemptionService{
		Dependencies: deps,
		secret:       opts.Secret,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
	}
}

// scan 一次核销过程中逐步补全的上下文
type scan struct {
	req      *RedeemRequest
	payload  *qrtoken.Payload
	at       time.Time
	customer *model.Customer
	sub      *model.Subscription
	mealType meal.Type
	settings model.Settings
}

// bounded 给单次存储调用加超时
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func (s *redemptionService) Redeem(ctx context.Context, req RedeemRequest) *model.RedemptionResult {
	if req.Source == "" {
		req.Source = model.SourceLive
	}
	start := time.Now()
	res := s.redeem(ctx, &req)
	s.Metrics.RecordRedemption(string(res.Status), string(res.Reason), string(req.Source), time.Since(start))
	return res
}

func (s *redemptionService) redeem(ctx context.Context, req *RedeemRequest) *model.RedemptionResult {
	now := s.now()
	at := req.ScannedAt
	if at.IsZero() || at.After(now) {
		at = now
	}

	// 1. 验签解码；此时还不知道客户，拒绝只记日志
	payload, err := qrtoken.Decode(req.Credential, s.secret, qrtoken.Options{Now: at, AllowNoExpiry: true})
	if err != nil {
		reason := model.ParseReason(err.Error())
		logger.Log.Info("credential rejected",
			zap.String("tenant", req.TenantID),
			zap.String("scanner", req.ScannerID),
			zap.String("reason", string(reason)),
		)
		return model.Denied(reason)
	}
	if payload.TenantID != req.TenantID {
		logger.Log.Warn("credential from another tenant",
			zap.String("tenant", req.TenantID),
			zap.String("credential_tenant", payload.TenantID),
			zap.String("scanner", req.ScannerID),
		)
		return model.Denied(model.ReasonTenantMismatch)
	}

	sc := &scan{req: req, payload: payload, at: at}

	// 幂等键命中直接返回原结果，不再扣减
	if req.ClientScanID != "" {
		if res, done := s.replayByKey(ctx, sc); done {
			return res
		}
	}

	// 2. 客户
	customer, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.Customer, error) {
		return s.Customers.GetByID(ctx, req.TenantID, payload.CustomerID)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return s.systemError(sc, "load customer", err)
	}
	sc.customer = customer
	if customer != nil && customer.QRID != payload.QRID {
		return s.deny(sc, model.ReasonCredentialRevoked, "")
	}

	// 3. 套餐
	if customer != nil && customer.IsActive {
		sub, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.Subscription, error) {
			return s.Subscriptions.FindActive(ctx, req.TenantID, customer.ID, at)
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return s.systemError(sc, "load subscription", err)
		}
		sc.sub = sub
	}

	// 4. 餐别
	settingsCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	sc.settings = s.Settings.Get(settingsCtx, req.TenantID)
	cancel()
	sc.mealType = req.MealType
	if sc.mealType == "" {
		sc.mealType, _ = meal.Resolve(at.In(sc.settings.Location), sc.settings.Windows)
	}

	// 5. 重复扫码查询，前置条件不满足时评估器会先拒绝，不必查
	var recent *model.MealTransaction
	if sc.sub != nil && sc.mealType != "" {
		recent, err = s.findRecent(ctx, sc)
		if err != nil {
			return s.systemError(sc, "duplicate lookup", err)
		}
	}

	// 6. 规则判定
	var allowed []meal.Type
	if sc.sub != nil {
		allowed = sc.settings.AllowedFor(sc.sub.PlanID)
	}
	decision := eligibility.Evaluate(eligibility.Input{
		Customer:         sc.customer,
		Subscription:     sc.sub,
		MealType:         sc.mealType,
		At:               at,
		AllowedMealTypes: allowed,
		Recent:           recent,
	})
	if !decision.Allowed {
		return s.deny(sc, decision.Reason, decision.DuplicateOf)
	}

	// 深链只能用一次，规则通过后才占用；没有扣减成功则归还
	if payload.Kind != qrtoken.KindLink {
		return s.commit(ctx, sc)
	}
	ok, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (bool, error) {
		return s.Nonces.Claim(ctx, req.TenantID, payload.Nonce, payload.Expiry())
	})
	if err != nil {
		return s.systemError(sc, "claim nonce", err)
	}
	if !ok {
		return s.deny(sc, model.ReasonCredentialReplayed, "")
	}

	// 7-9. 条件扣减 + 成功流水，同一事务
	res := s.commit(ctx, sc)
	if res.Status != model.StatusSuccess {
		s.releaseNonce(ctx, sc)
	}
	return res
}

// releaseNonce 归还失败时链接只是提前作废，不影响本次结果
func (s *redemptionService) releaseNonce(ctx context.Context, sc *scan) {
	_, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Nonces.Release(ctx, sc.req.TenantID, sc.payload.Nonce)
	})
	if err != nil {
		logger.Log.Warn("release nonce failed", zap.String("tenant", sc.req.TenantID), zap.Error(err))
	}
}

func (s *redemptionService) commit(ctx context.Context, sc *scan) *model.RedemptionResult {
	txn := s.newTransaction(sc, model.TxnSuccess, "")
	from, to := sc.settings.DuplicateRange(sc.at)

	after, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.Subscription, error) {
		return s.Subscriptions.Redeem(ctx, repository.RedeemCommand{
			TenantID:       sc.req.TenantID,
			SubscriptionID: sc.sub.ID,
			MealType:       sc.mealType,
			PerMeal:        sc.sub.PerMealTracking,
			At:             sc.at,
			DuplicateFrom:  from,
			DuplicateTo:    to,
			Txn:            txn,
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrBalanceConflict):
		s.Metrics.RecordDecrementConflict()
		return s.resolveConflict(ctx, sc)
	case errors.Is(err, repository.ErrDuplicateClientScan):
		if res, done := s.replayByKey(ctx, sc); done {
			return res
		}
		return s.systemError(sc, "replay after unique violation", err)
	default:
		// 超时时写入可能已经落库，客户端带同一幂等键重试即可得到原结果
		return s.systemError(sc, "redeem", err)
	}

	// 10. 余额用完即停用，失败留给定时清理
	if after.Exhausted() {
		if _, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (bool, error) {
			return s.Subscriptions.DeactivateIfExhausted(ctx, sc.req.TenantID, after.ID)
		}); err != nil {
			logger.Log.Warn("deactivate exhausted subscription failed", zap.String("subscription", after.ID), zap.Error(err))
		}
	}

	res := model.Succeeded(txn, false)
	logger.Log.Info("meal redeemed",
		zap.String("tenant", sc.req.TenantID),
		zap.String("customer", sc.customer.ID),
		zap.String("meal_type", string(sc.mealType)),
		zap.String("transaction", txn.ID),
		zap.Int("remaining", res.BalanceRemaining),
	)
	s.notify(txn, res.BalanceRemaining)
	return res
}

// resolveConflict 条件扣减未命中：可能是重试请求、同餐别并发扫码或最后一份被抢走
func (s *redemptionService) resolveConflict(ctx context.Context, sc *scan) *model.RedemptionResult {
	if sc.req.ClientScanID != "" {
		if res, done := s.replayByKey(ctx, sc); done {
			return res
		}
	}

	current, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.Subscription, error) {
		return s.Subscriptions.GetByID(ctx, sc.req.TenantID, sc.sub.ID)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return s.systemError(sc, "reload subscription", err)
	}
	if current == nil || !current.IsActive || current.Remaining(sc.mealType) <= 0 || current.Exhausted() {
		sc.sub = current
		return s.deny(sc, model.ReasonNoMealsRemaining, "")
	}

	recent, err := s.findRecent(ctx, sc)
	if err != nil {
		return s.systemError(sc, "duplicate lookup", err)
	}
	if recent != nil {
		return s.deny(sc, model.ReasonDuplicateScan, recent.ID)
	}
	return s.deny(sc, model.ReasonNoMealsRemaining, "")
}

// replayByKey 按幂等键查找成功流水，找到返回原结果；查询失败返回系统错误
func (s *redemptionService) replayByKey(ctx context.Context, sc *scan) (*model.RedemptionResult, bool) {
	prior, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.MealTransaction, error) {
		return s.Transactions.FindSuccessByClientScanID(ctx, sc.req.TenantID, sc.req.ClientScanID)
	})
	switch {
	case err == nil:
		logger.Log.Info("idempotent replay",
			zap.String("tenant", sc.req.TenantID),
			zap.String("client_scan_id", sc.req.ClientScanID),
			zap.String("transaction", prior.ID),
		)
		return model.Succeeded(prior, true), true
	case errors.Is(err, repository.ErrNotFound):
		return nil, false
	default:
		return s.systemError(sc, "idempotency lookup", err), true
	}
}

func (s *redemptionService) findRecent(ctx context.Context, sc *scan) (*model.MealTransaction, error) {
	from, to := sc.settings.DuplicateRange(sc.at)
	recent, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (*model.MealTransaction, error) {
		return s.Transactions.FindSuccessBetween(ctx, sc.req.TenantID, sc.customer.ID, sc.mealType, from, to)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return recent, err
}

func (s *redemptionService) newTransaction(sc *scan, status model.TransactionStatus, reason model.Reason) *model.MealTransaction {
	txn := &model.MealTransaction{
		CustomerID: sc.payload.CustomerID,
		MealType:   sc.mealType,
		Status:     status,
		Reason:     reason,
		ScannerID:  sc.req.ScannerID,
		Source:     sc.req.Source,
		ScannedAt:  sc.at,
	}
	txn.TenantID = sc.req.TenantID
	if sc.req.Source == model.SourceOffline {
		synced := s.now()
		txn.SyncedAt = &synced
	}
	if sc.req.ClientScanID != "" {
		key := sc.req.ClientScanID
		txn.ClientScanID = &key
	}
	if len(sc.req.Metadata) > 0 {
		txn.Metadata = datatypes.JSONMap(sc.req.Metadata)
	}
	if sc.sub != nil {
		subID := sc.sub.ID
		txn.SubscriptionID = &subID
		snapshot := datatypes.NewJSONType(sc.sub.Snapshot())
		txn.BalanceBefore = snapshot
		txn.BalanceAfter = snapshot
	}
	return txn
}

// deny 返回拒绝结果；客户已知时异步写审计流水
func (s *redemptionService) deny(sc *scan, reason model.Reason, duplicateOf string) *model.RedemptionResult {
	logger.Log.Info("redemption denied",
		zap.String("tenant", sc.req.TenantID),
		zap.String("customer", sc.payload.CustomerID),
		zap.String("scanner", sc.req.ScannerID),
		zap.String("reason", string(reason)),
	)
	if sc.customer != nil {
		txn := s.newTransaction(sc, reason.TransactionStatus(), reason)
		if duplicateOf != "" {
			txn.DuplicateOf = &duplicateOf
		}
		s.record(txn)
	}

	res := model.Denied(reason)
	res.MealType = sc.mealType
	res.CustomerID = sc.payload.CustomerID
	res.DuplicateOf = duplicateOf
	return res
}

// systemError 具体原因只进日志，调用方只看到可重试的 system_error
func (s *redemptionService) systemError(sc *scan, op string, err error) *model.RedemptionResult {
	logger.Log.Error("redemption failed",
		zap.String("op", op),
		zap.String("tenant", sc.req.TenantID),
		zap.String("customer", sc.payload.CustomerID),
		zap.Error(err),
	)
	if sc.customer != nil {
		s.record(s.newTransaction(sc, model.TxnFailed, model.ReasonSystemError))
	}
	return model.Denied(model.ReasonSystemError)
}

func (s *redemptionService) record(txn *model.MealTransaction) {
	s.Workers.Submit(worker.TaskFunc{
		Name: "record_transaction",
		Fn: func(ctx context.Context) error {
			return s.Transactions.Create(ctx, txn)
		},
	})
}

func (s *redemptionService) notify(txn *model.MealTransaction, remaining int) {
	if s.Notifier == nil {
		return
	}
	event := push.MealEvent{
		TenantID:      txn.TenantID,
		CustomerID:    txn.CustomerID,
		TransactionID: txn.ID,
		MealType:      string(txn.MealType),
		Remaining:     remaining,
		ScannedAt:     txn.ScannedAt,
	}
	s.Workers.Submit(worker.TaskFunc{
		Name: "notify_meal_redeemed",
		Fn: func(ctx context.Context) error {
			return s.Notifier.NotifyMealRedeemed(ctx, event)
		},
	})
}

func (s *redemptionService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, page utils.Pagination) (*utils.PageResult, error) {
	offset, limit := page.Bounds()
	var count int64
	txns, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) ([]model.MealTransaction, error) {
		list, total, err := s.Transactions.List(ctx, filter, offset, limit)
		count = total
		return list, err
	})
	if err != nil {
		return nil, err
	}
	return utils.NewPageResult(txns, count, page), nil
}
