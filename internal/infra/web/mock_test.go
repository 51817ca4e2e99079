//go:build !integration

package web_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/domain/ports/repository"
	"blessbox/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// memStore is a single in-memory backing store implementing every repository
// port the server needs, keyed the same way the SQL schema is.
type memStore struct {
	mu      sync.Mutex
	orgs    map[string]*model.Organization
	subs    map[string]*model.Subscription
	coupons map[string]*model.Coupon
	sets    map[string]*model.QRCodeSet
	regs    map[string]*model.Registration
	codes   map[string]*model.VerificationCode

	redemptions []*model.CouponRedemption
}

func newMemStore() *memStore {
	return &memStore{
		orgs:    make(map[string]*model.Organization),
		subs:    make(map[string]*model.Subscription),
		coupons: make(map[string]*model.Coupon),
		sets:    make(map[string]*model.QRCodeSet),
		regs:    make(map[string]*model.Registration),
		codes:   make(map[string]*model.VerificationCode),
	}
}

// ---- OrganizationRepository ----

type memOrgRepo struct{ s *memStore }

var _ repository.OrganizationRepository = (*memOrgRepo)(nil)

func (r *memOrgRepo) Save(ctx context.Context, tx repository.Tx, org *model.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *org
	r.s.orgs[org.ID] = &cp
	return nil
}

func (r *memOrgRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if org, ok := r.s.orgs[id]; ok {
		cp := *org
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memOrgRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, org := range r.s.orgs {
		if org.Slug == slug {
			cp := *org
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memOrgRepo) FindByContactEmail(ctx context.Context, tx repository.Tx, email string) (*model.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, org := range r.s.orgs {
		if org.ContactEmail == email {
			cp := *org
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memOrgRepo) MarkVerified(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.orgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	org.Verified = true
	return nil
}

func (r *memOrgRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.orgs), nil
}

// ---- SubscriptionRepository ----

type memSubRepo struct{ s *memStore }

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *s
	r.s.subs[s.ID] = &cp
	return nil
}

func (r *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s, ok := r.s.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) FindByOrganization(ctx context.Context, tx repository.Tx, orgID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.subs {
		if s.OrganizationID == orgID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) MarkCanceling(ctx context.Context, tx repository.Tx, id string, periodEnd time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.subs[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCanceling
	pe := periodEnd
	s.CurrentPeriodEnd = &pe
	return true, nil
}

func (r *memSubRepo) FindExpiredCancellations(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.s.subs {
		if s.Status == model.SubscriptionStatusCanceling && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubRepo) FinalizeCancellation(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.subs[id]
	if !ok || s.Status != model.SubscriptionStatusCanceling || s.CurrentPeriodEnd == nil || !s.CurrentPeriodEnd.Before(now) {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCanceled
	s.PlanType = model.PlanFree
	s.RegistrationLimit = model.LimitsFor(model.PlanFree).Registrations
	return true, nil
}

func (r *memSubRepo) IncrementRegistrationCount(ctx context.Context, tx repository.Tx, orgID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.subs {
		if s.OrganizationID == orgID {
			s.RegistrationCount++
		}
	}
	return nil
}

func (r *memSubRepo) IncrementExportCount(ctx context.Context, tx repository.Tx, orgID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.subs {
		if s.OrganizationID == orgID {
			s.ExportCount++
		}
	}
	return nil
}

func (r *memSubRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range r.s.subs {
		out[s.Status]++
	}
	return out, nil
}

// ---- CouponRepository ----

type memCouponRepo struct{ s *memStore }

var _ repository.CouponRepository = (*memCouponRepo)(nil)

func (r *memCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.coupons[c.ID] = &cp
	return nil
}

func (r *memCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.coupons {
		if c.Code == model.NormalizeCouponCode(code) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCouponRepo) IncrementUses(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return false, nil
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return false, nil
	}
	c.CurrentUses++
	return true, nil
}

func (r *memCouponRepo) SaveRedemption(ctx context.Context, tx repository.Tx, red *model.CouponRedemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *red
	r.s.redemptions = append(r.s.redemptions, &cp)
	return nil
}

func (r *memCouponRepo) CountRedemptionsByOrg(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, red := range r.s.redemptions {
		if red.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

// ---- QRCodeSetRepository ----

type memSetRepo struct{ s *memStore }

var _ repository.QRCodeSetRepository = (*memSetRepo)(nil)

func (r *memSetRepo) Save(ctx context.Context, tx repository.Tx, set *model.QRCodeSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *set
	r.s.sets[set.ID] = &cp
	return nil
}

func (r *memSetRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.QRCodeSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if set, ok := r.s.sets[id]; ok {
		cp := *set
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSetRepo) FindByCodeLabel(ctx context.Context, tx repository.Tx, orgID, label string) (*model.QRCodeSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, set := range r.s.sets {
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

func (r *memSetRepo) ListByOrganization(ctx context.Context, tx repository.Tx, orgID string) ([]*model.QRCodeSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.QRCodeSet
	for _, set := range r.s.sets {
		if set.OrganizationID == orgID {
			cp := *set
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSetRepo) CountByOrganization(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	sets, _ := r.ListByOrganization(ctx, tx, orgID)
	return len(sets), nil
}

func (r *memSetRepo) IncrementScanCount(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if set, ok := r.s.sets[id]; ok {
		set.ScanCount++
	}
	return nil
}

// ---- RegistrationRepository ----

type memRegRepo struct{ s *memStore }

var _ repository.RegistrationRepository = (*memRegRepo)(nil)

func (r *memRegRepo) Save(ctx context.Context, tx repository.Tx, reg *model.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *reg
	r.s.regs[reg.ID] = &cp
	return nil
}

func (r *memRegRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if reg, ok := r.s.regs[id]; ok {
		cp := *reg
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memRegRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.regs {
		if reg.CheckInToken == token {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRegRepo) ListByQRCodeSet(ctx context.Context, tx repository.Tx, setID string, offset, limit int) ([]*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Registration
	for _, reg := range r.s.regs {
		if reg.QRCodeSetID == setID {
			cp := *reg
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

func (r *memRegRepo) CountByQRCodeSet(ctx context.Context, tx repository.Tx, setID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, reg := range r.s.regs {
		if reg.QRCodeSetID == setID {
			n++
		}
	}
	return n, nil
}

func (r *memRegRepo) CheckIn(ctx context.Context, tx repository.Tx, id, checkedInBy string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok || reg.CheckedInAt != nil {
		return false, nil
	}
	t := at
	reg.CheckedInAt = &t
	reg.CheckedInBy = checkedInBy
	reg.TokenStatus = model.TokenStatusUsed
	return true, nil
}

func (r *memRegRepo) UndoCheckIn(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok || reg.CheckedInAt == nil {
		return false, nil
	}
	reg.CheckedInAt = nil
	reg.CheckedInBy = ""
	reg.TokenStatus = model.TokenStatusActive
	return true, nil
}

func (r *memRegRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.regs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.regs, id)
	return nil
}

// ---- VerificationCodeRepository ----

type memCodeRepo struct{ s *memStore }

var _ repository.VerificationCodeRepository = (*memCodeRepo)(nil)

func (r *memCodeRepo) Save(ctx context.Context, tx repository.Tx, vc *model.VerificationCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *vc
	r.s.codes[vc.Email] = &cp
	return nil
}

func (r *memCodeRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if vc, ok := r.s.codes[email]; ok {
		cp := *vc
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memCodeRepo) IncrementAttempts(ctx context.Context, tx repository.Tx, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if vc, ok := r.s.codes[email]; ok {
		vc.Attempts++
	}
	return nil
}

func (r *memCodeRepo) Delete(ctx context.Context, tx repository.Tx, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.codes, email)
	return nil
}

// ---- adapters ----

type memEmailSender struct {
	mu   sync.Mutex
	sent []string // recipient addresses
}

var _ adapter.EmailSender = (*memEmailSender)(nil)

func (m *memEmailSender) Send(ctx context.Context, orgID, to string, template adapter.TemplateType, vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

type memGateway struct{}

var _ adapter.PaymentGateway = (*memGateway)(nil)

func (memGateway) Name() string { return "mem" }

func (memGateway) CreateCheckout(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test", AmountCents: amountCents, Currency: currency}, nil
}

func (memGateway) ParseWebhook(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	return nil, domain.ErrInvalidArgument
}

type openLimiter struct{}

func (openLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

// stubFinalizer runs a pass directly against the use case without a lock.
type stubFinalizer struct {
	subUC *usecase.SubscriptionUseCase
}

func (f *stubFinalizer) RunOnce(ctx context.Context) *usecase.FinalizeReport {
	report, err := f.subUC.FinalizeExpired(ctx, time.Now())
	if err != nil {
		return nil
	}
	return report
}
