package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/repository"
	"github.com/manmiddle614-crypto/backend/pkg/meal"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// memStore 内存版仓储，Redeem 在锁内做与 SQL 相同的条件判断
type memStore struct {
	mu        sync.Mutex
	customers map[string]model.Customer
	subs      map[string]model.Subscription
	txns      []model.MealTransaction
	err       error // 非空时所有读操作返回该错误
	redeemErr error // 非空时下一次 Redeem 返回该错误
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[string]model.Customer{},
		subs:      map[string]model.Subscription{},
	}
}

func (m *memStore) addCustomer(c model.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

func (m *memStore) addSubscription(s model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
}

func (m *memStore) subscription(id string) model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

func (m *memStore) transactions(status model.TransactionStatus) []model.MealTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MealTransaction
	for _, t := range m.txns {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func lastRedeemed(s *model.Subscription, t meal.Type) **time.Time {
	switch t {
	case meal.Breakfast:
		return &s.LastBreakfastAt
	case meal.Lunch:
		return &s.LastLunchAt
	case meal.Dinner:
		return &s.LastDinnerAt
	default:
		return &s.LastSnackAt
	}
}

func decrement(s *model.Subscription, t meal.Type) {
	s.TotalRemaining--
	if !s.PerMealTracking {
		return
	}
	switch t {
	case meal.Breakfast:
		s.BreakfastRemaining--
	case meal.Lunch:
		s.LunchRemaining--
	case meal.Dinner:
		s.DinnerRemaining--
	case meal.Snack:
		s.SnackRemaining--
	}
}

// CustomerRepository

func (m *memStore) GetByID(ctx context.Context, tenantID, id string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// subscriptionRepo 避免与 CustomerRepository.GetByID 冲突
type subscriptionRepo struct{ *memStore }

func (r subscriptionRepo) FindActive(ctx context.Context, tenantID, customerID string, at time.Time) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var matches []model.Subscription
	for _, s := range r.subs {
		if s.TenantID == tenantID && s.CustomerID == customerID && s.IsActive && s.ValidAt(at) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	return &matches[0], nil
}

func (r subscriptionRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r subscriptionRepo) Redeem(ctx context.Context, cmd repository.RedeemCommand) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.redeemErr; err != nil {
		r.redeemErr = nil
		return nil, err
	}

	s, ok := r.subs[cmd.SubscriptionID]
	if !ok || s.TenantID != cmd.TenantID || !s.IsActive || s.TotalRemaining <= 0 {
		return nil, repository.ErrBalanceConflict
	}
	if cmd.PerMeal && s.Remaining(cmd.MealType) <= 0 {
		return nil, repository.ErrBalanceConflict
	}
	last := lastRedeemed(&s, cmd.MealType)
	if *last != nil && !(*last).Before(cmd.DuplicateFrom) && !(*last).After(cmd.DuplicateTo) {
		return nil, repository.ErrBalanceConflict
	}
	if key := cmd.Txn.ClientScanID; key != nil {
		for _, t := range r.txns {
			if t.Status == model.TxnSuccess && t.ClientScanID != nil && *t.ClientScanID == *key && t.TenantID == cmd.TenantID {
				return nil, repository.ErrDuplicateClientScan
			}
		}
	}

	decrement(&s, cmd.MealType)
	if *last == nil || cmd.At.After(**last) {
		at := cmd.At
		*last = &at
	}
	r.subs[s.ID] = s

	snapshot := s.Snapshot()
	cmd.Txn.BalanceAfter = datatypes.NewJSONType(snapshot)
	cmd.Txn.BalanceBefore = datatypes.NewJSONType(snapshot.Restore(cmd.MealType))
	subID := s.ID
	cmd.Txn.SubscriptionID = &subID
	if cmd.Txn.ID == "" {
		cmd.Txn.ID = uuid.New().String()
	}
	r.txns = append(r.txns, *cmd.Txn)
	return &s, nil
}

func (r subscriptionRepo) DeactivateIfExhausted(ctx context.Context, tenantID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || !s.IsActive || !s.Exhausted() {
		return false, nil
	}
	s.IsActive = false
	r.subs[id] = s
	return true, nil
}

// transactionRepo 流水
type transactionRepo struct{ *memStore }

func (r transactionRepo) Create(ctx context.Context, txn *model.MealTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	r.txns = append(r.txns, *txn)
	return nil
}

func (r transactionRepo) FindSuccessByClientScanID(ctx context.Context, tenantID, clientScanID string) (*model.MealTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.txns {
		if t.TenantID == tenantID && t.Status == model.TxnSuccess && t.ClientScanID != nil && *t.ClientScanID == clientScanID {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r transactionRepo) FindSuccessBetween(ctx context.Context, tenantID, customerID string, mealType meal.Type, from, to time.Time) (*model.MealTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.MealTransaction
	for i := range r.txns {
		t := r.txns[i]
		if t.TenantID != tenantID || t.CustomerID != customerID || t.MealType != mealType || t.Status != model.TxnSuccess {
			continue
		}
		if t.ScannedAt.Before(from) || t.ScannedAt.After(to) {
			continue
		}
		if best == nil || t.ScannedAt.After(best.ScannedAt) {
			best = &t
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r transactionRepo) List(ctx context.Context, filter repository.TransactionFilter, offset, limit int) ([]model.MealTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MealTransaction
	for _, t := range r.txns {
		if t.TenantID == filter.TenantID && (filter.CustomerID == "" || t.CustomerID == filter.CustomerID) {
			out = append(out, t)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}
