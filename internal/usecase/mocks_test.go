//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Mock TxManager ----

// MockTxManager runs the function directly with a nil handle. The in-memory
// repos below make their conditional updates atomic themselves, which is the
// property the use cases rely on.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock OrganizationRepo ----

type MockOrganizationRepo struct {
	mu   sync.Mutex
	orgs map[string]*model.Organization
}

var _ repository.OrganizationRepository = (*MockOrganizationRepo)(nil)

func NewMockOrganizationRepo() *MockOrganizationRepo {
	return &MockOrganizationRepo{orgs: make(map[string]*model.Organization)}
}

func (m *MockOrganizationRepo) Save(ctx context.Context, tx repository.Tx, org *model.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *MockOrganizationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org, ok := m.orgs[id]; ok {
		cp := *org
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrganizationRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Slug == slug {
			cp := *org
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrganizationRepo) FindByContactEmail(ctx context.Context, tx repository.Tx, email string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if strings.EqualFold(org.ContactEmail, email) {
			cp := *org
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrganizationRepo) MarkVerified(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	org.Verified = true
	return nil
}

func (m *MockOrganizationRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orgs), nil
}

// ---- Mock SubscriptionRepo ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	FinalizeCancellationFunc func(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error)
	IncrementRegistrationErr error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindByOrganization(ctx context.Context, tx repository.Tx, orgID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.OrganizationID == orgID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) MarkCanceling(ctx context.Context, tx repository.Tx, id string, periodEnd time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCanceling
	pe := periodEnd
	s.CurrentPeriodEnd = &pe
	return true, nil
}

func (m *MockSubscriptionRepo) FindExpiredCancellations(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.subs {
		if s.Status == model.SubscriptionStatusCanceling && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) FinalizeCancellation(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	if m.FinalizeCancellationFunc != nil {
		return m.FinalizeCancellationFunc(ctx, tx, id, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.Status != model.SubscriptionStatusCanceling || s.CurrentPeriodEnd == nil || !s.CurrentPeriodEnd.Before(now) {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCanceled
	s.PlanType = model.PlanFree
	s.RegistrationLimit = model.LimitsFor(model.PlanFree).Registrations
	return true, nil
}

func (m *MockSubscriptionRepo) IncrementRegistrationCount(ctx context.Context, tx repository.Tx, orgID string) error {
	if m.IncrementRegistrationErr != nil {
		return m.IncrementRegistrationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.OrganizationID == orgID {
			s.RegistrationCount++
		}
	}
	return nil
}

func (m *MockSubscriptionRepo) IncrementExportCount(ctx context.Context, tx repository.Tx, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.OrganizationID == orgID {
			s.ExportCount++
		}
	}
	return nil
}

func (m *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range m.subs {
		out[s.Status]++
	}
	return out, nil
}

// ---- Mock CouponRepo ----

type MockCouponRepo struct {
	mu          sync.Mutex
	coupons     map[string]*model.Coupon // by id
	redemptions []*model.CouponRedemption

	FindByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error)
}

var _ repository.CouponRepository = (*MockCouponRepo)(nil)

func NewMockCouponRepo() *MockCouponRepo {
	return &MockCouponRepo{coupons: make(map[string]*model.Coupon)}
}

func (m *MockCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *MockCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == model.NormalizeCouponCode(code) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// IncrementUses mirrors the conditional UPDATE: atomic under the repo mutex,
// rejected once current_uses reaches max_uses.
func (m *MockCouponRepo) IncrementUses(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return false, nil
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return false, nil
	}
	c.CurrentUses++
	return true, nil
}

func (m *MockCouponRepo) SaveRedemption(ctx context.Context, tx repository.Tx, r *model.CouponRedemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.redemptions = append(m.redemptions, &cp)
	return nil
}

func (m *MockCouponRepo) CountRedemptionsByOrg(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.redemptions {
		if r.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

func (m *MockCouponRepo) Redemptions() []*model.CouponRedemption {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.CouponRedemption, len(m.redemptions))
	copy(out, m.redemptions)
	return out
}

// ---- Mock QRCodeSetRepo ----

type MockQRCodeSetRepo struct {
	mu   sync.Mutex
	sets map[string]*model.QRCodeSet
}

var _ repository.QRCodeSetRepository = (*MockQRCodeSetRepo)(nil)

func NewMockQRCodeSetRepo() *MockQRCodeSetRepo {
	return &MockQRCodeSetRepo{sets: make(map[string]*model.QRCodeSet)}
}

func (m *MockQRCodeSetRepo) Save(ctx context.Context, tx repository.Tx, set *model.QRCodeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *set
	m.sets[set.ID] = &cp
	return nil
}

func (m *MockQRCodeSetRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.QRCodeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sets[id]; ok {
		cp := *set
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockQRCodeSetRepo) FindByCodeLabel(ctx context.Context, tx repository.Tx, orgID, label string) (*model.QRCodeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.sets {
		if set.OrganizationID != orgID {
			continue
		}
		for _, code := range set.QRCodes {
			if code.Label == label && code.IsActive {
				cp := *set
				return &cp, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockQRCodeSetRepo) ListByOrganization(ctx context.Context, tx repository.Tx, orgID string) ([]*model.QRCodeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.QRCodeSet
	for _, set := range m.sets {
		if set.OrganizationID == orgID {
			cp := *set
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockQRCodeSetRepo) CountByOrganization(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	sets, _ := m.ListByOrganization(ctx, tx, orgID)
	return len(sets), nil
}

func (m *MockQRCodeSetRepo) IncrementScanCount(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sets[id]; ok {
		set.ScanCount++
	}
	return nil
}

// ---- Mock RegistrationRepo ----

type MockRegistrationRepo struct {
	mu   sync.Mutex
	regs map[string]*model.Registration

	SaveFunc func(ctx context.Context, tx repository.Tx, r *model.Registration) error
}

var _ repository.RegistrationRepository = (*MockRegistrationRepo)(nil)

func NewMockRegistrationRepo() *MockRegistrationRepo {
	return &MockRegistrationRepo{regs: make(map[string]*model.Registration)}
}

func (m *MockRegistrationRepo) Save(ctx context.Context, tx repository.Tx, r *model.Registration) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.regs[r.ID] = &cp
	return nil
}

func (m *MockRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.regs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockRegistrationRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.CheckInToken == token {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockRegistrationRepo) ListByQRCodeSet(ctx context.Context, tx repository.Tx, setID string, offset, limit int) ([]*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Registration
	for _, r := range m.regs {
		if r.QRCodeSetID == setID {
			cp := *r
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRegistrationRepo) CountByQRCodeSet(ctx context.Context, tx repository.Tx, setID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.QRCodeSetID == setID {
			n++
		}
	}
	return n, nil
}

// CheckIn is atomic under the repo mutex, matching the guarded UPDATE.
func (m *MockRegistrationRepo) CheckIn(ctx context.Context, tx repository.Tx, id, checkedInBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok || r.CheckedInAt != nil {
		return false, nil
	}
	t := at
	r.CheckedInAt = &t
	r.CheckedInBy = checkedInBy
	r.TokenStatus = model.TokenStatusUsed
	return true, nil
}

func (m *MockRegistrationRepo) UndoCheckIn(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok || r.CheckedInAt == nil {
		return false, nil
	}
	r.CheckedInAt = nil
	r.CheckedInBy = ""
	r.TokenStatus = model.TokenStatusActive
	return true, nil
}

func (m *MockRegistrationRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.regs, id)
	return nil
}

// ---- Mock VerificationCodeRepo ----

type MockVerificationCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.VerificationCode
}

var _ repository.VerificationCodeRepository = (*MockVerificationCodeRepo)(nil)

func NewMockVerificationCodeRepo() *MockVerificationCodeRepo {
	return &MockVerificationCodeRepo{codes: make(map[string]*model.VerificationCode)}
}

func (m *MockVerificationCodeRepo) Save(ctx context.Context, tx repository.Tx, vc *model.VerificationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *vc
	m.codes[vc.Email] = &cp
	return nil
}

func (m *MockVerificationCodeRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vc, ok := m.codes[email]; ok {
		cp := *vc
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockVerificationCodeRepo) IncrementAttempts(ctx context.Context, tx repository.Tx, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vc, ok := m.codes[email]; ok {
		vc.Attempts++
	}
	return nil
}

func (m *MockVerificationCodeRepo) Delete(ctx context.Context, tx repository.Tx, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
	return nil
}

// ---- Mock EmailSender ----

type sentEmail struct {
	To       string
	Template adapter.TemplateType
	Vars     map[string]string
}

type MockEmailSender struct {
	mu   sync.Mutex
	Sent []sentEmail

	SendFunc func(ctx context.Context, orgID, to string, template adapter.TemplateType, vars map[string]string) error
}

var _ adapter.EmailSender = (*MockEmailSender)(nil)

func (m *MockEmailSender) Send(ctx context.Context, orgID, to string, template adapter.TemplateType, vars map[string]string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, orgID, to, template, vars)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentEmail{To: to, Template: template, Vars: vars})
	return nil
}

func (m *MockEmailSender) LastSent() *sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu       sync.Mutex
	Sessions []*adapter.CheckoutSession

	CreateCheckoutFunc func(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*adapter.CheckoutSession, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*adapter.CheckoutSession, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, amountCents, currency, successURL, cancelURL, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &adapter.CheckoutSession{
		ID:          "cs_" + uuid.NewString(),
		URL:         "https://checkout.test/" + uuid.NewString(),
		AmountCents: amountCents,
		Currency:    currency,
	}
	m.Sessions = append(m.Sessions, s)
	return s, nil
}

func (m *MockPaymentGateway) ParseWebhook(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	return nil, domain.ErrInvalidArgument
}

// ---- Mock RateLimiter ----

type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int

	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{counts: make(map[string]int)}
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}
