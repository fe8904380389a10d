package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/events"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

// stubTx пустая транзакция: репозитории в тестах держат состояние в памяти
type stubTx struct{}

func (stubTx) Get(context.Context, interface{}, string, ...interface{}) error    { return nil }
func (stubTx) Select(context.Context, interface{}, string, ...interface{}) error { return nil }
func (stubTx) Exec(context.Context, string, ...interface{}) error                { return nil }
func (stubTx) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, nil
}
func (stubTx) NamedExec(context.Context, string, interface{}) error { return nil }
func (stubTx) QueryRow(context.Context, string, ...interface{}) *sqlx.Row {
	return nil
}
func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubTxManager struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (m *stubTxManager) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	// Как и боевой TxManager: паника в колбэке считается откатом
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			m.rollbacks++
			m.mu.Unlock()
			panic(r)
		}
	}()

	err := fn(ctx, stubTx{})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

// memPaymentRepo журнал платежей в памяти
type memPaymentRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]*domain.Payment

	updateStatusErr error // имитация сбоя БД
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byID: make(map[int64]*domain.Payment)}
}

func (r *memPaymentRepo) add(p *domain.Payment) *domain.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.seq++
		p.ID = r.seq
	}
	r.byID[p.ID] = p
	return p
}

func (r *memPaymentRepo) Create(_ context.Context, _ persistence.Persistence, p *domain.Payment) (int64, error) {
	return r.add(p).ID, nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, _ persistence.Persistence, id int64) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPaymentRepo) GetByProviderTxID(_ context.Context, _ persistence.Persistence, provider domain.PaymentProvider, txID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Provider == provider && p.ProviderTxID != nil && *p.ProviderTxID == txID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *memPaymentRepo) LinkProviderTx(_ context.Context, _ persistence.Persistence, id int64, txID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if p.ProviderTxID != nil && *p.ProviderTxID != txID {
		return domain.ErrProviderIDAlreadySet
	}
	p.ProviderTxID = &txID
	return nil
}

func (r *memPaymentRepo) UpdateStatus(_ context.Context, _ persistence.Persistence, id int64, status domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

func (r *memPaymentRepo) MarkActivated(_ context.Context, _ persistence.Persistence, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	if p.ActivatedAt != nil {
		return false, nil
	}
	p.ActivatedAt = &at
	return true, nil
}

func (r *memPaymentRepo) ListStalePending(_ context.Context, _ persistence.Persistence, olderThan time.Time, limit int) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.byID {
		if p.Status == domain.PaymentStatusPending && p.ProviderTxID != nil && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListCreatedBetween(_ context.Context, _ persistence.Persistence, from, to time.Time) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.byID {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// memUserRepo пользователи в памяти
type memUserRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]*domain.User

	// есть ли у пользователя успешный платёж помимо текущего
	// (проверка "первой оплаты" реферала)
	paidBefore map[int64]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:       make(map[int64]*domain.User),
		paidBefore: make(map[int64]bool),
	}
}

func (r *memUserRepo) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		r.seq++
		u.ID = r.seq
	}
	r.byID[u.ID] = u
	return u
}

func (r *memUserRepo) Create(_ context.Context, _ persistence.Persistence, u *domain.User) (int64, error) {
	return r.add(u).ID, nil
}

func (r *memUserRepo) GetByID(_ context.Context, _ persistence.Persistence, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) GetByTelegramID(_ context.Context, _ persistence.Persistence, telegramID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) UpdateSubscriptionEndDate(_ context.Context, _ persistence.Persistence, id int64, endDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.SubscriptionEndDate = &endDate
	return nil
}

func (r *memUserRepo) HasSucceededPayments(_ context.Context, _ persistence.Persistence, userID int64, _ int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paidBefore[userID], nil
}

func (r *memUserRepo) RevokeExpiredSubscriptions(_ context.Context, _ persistence.Persistence, now time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked []int64
	for _, u := range r.byID {
		if u.SubscriptionEndDate != nil && u.SubscriptionEndDate.Before(now) {
			u.SubscriptionEndDate = nil
			revoked = append(revoked, u.ID)
		}
	}
	return revoked, nil
}

// memPromoRepo промокоды в памяти
type memPromoRepo struct {
	mu     sync.Mutex
	byID   map[int64]*domain.PromoCode
	byCode map[string]*domain.PromoCode
}

func newMemPromoRepo() *memPromoRepo {
	return &memPromoRepo{
		byID:   make(map[int64]*domain.PromoCode),
		byCode: make(map[string]*domain.PromoCode),
	}
}

func (r *memPromoRepo) add(p *domain.PromoCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	r.byCode[p.Code] = p
}

func (r *memPromoRepo) GetByID(_ context.Context, _ persistence.Persistence, id int64) (*domain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPromoCodeNotFound
	}
	return p, nil
}

func (r *memPromoRepo) GetActiveByCode(_ context.Context, _ persistence.Persistence, code string) (*domain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byCode[code]
	if !ok || !p.IsActive {
		return nil, domain.ErrPromoCodeNotFound
	}
	return p, nil
}

// stubActivator подменяет активацию в тестах процессора
type stubActivator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *stubActivator) Activate(_ context.Context, _ persistence.Transaction, payment *domain.Payment) (*domain.ActivationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &domain.ActivationResult{PaymentID: payment.ID, UserID: payment.UserID}, nil
}

type stubNotifier struct {
	mu        sync.Mutex
	succeeded []int64
	failed    []int64
	expired   []int64
}

func (n *stubNotifier) NotifyPaymentSucceeded(_ context.Context, _ *domain.User, payment *domain.Payment, _ *domain.ActivationResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded = append(n.succeeded, payment.ID)
}

func (n *stubNotifier) NotifyPaymentFailed(_ context.Context, _ *domain.User, payment *domain.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, payment.ID)
}

func (n *stubNotifier) NotifySubscriptionExpired(_ context.Context, user *domain.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, user.ID)
}

type stubAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *stubAlerter) SendAlert(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func (a *stubAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

type stubProducer struct {
	mu     sync.Mutex
	events []events.PaymentEvent
}

func (p *stubProducer) PublishPaymentEvent(_ context.Context, event events.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *stubProducer) Close() error { return nil }

// stubConfirmer записывает ответы на pre_checkout_query
type stubConfirmer struct {
	mu      sync.Mutex
	answers []preCheckoutAnswer
}

type preCheckoutAnswer struct {
	queryID string
	ok      bool
	message string
}

func (c *stubConfirmer) ConfirmPreCheckout(_ context.Context, queryID string, ok bool, errorMessage *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	c.answers = append(c.answers, preCheckoutAnswer{queryID: queryID, ok: ok, message: msg})
	return nil
}

func (c *stubConfirmer) last() (preCheckoutAnswer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.answers) == 0 {
		return preCheckoutAnswer{}, fmt.Errorf("no answers recorded")
	}
	return c.answers[len(c.answers)-1], nil
}
