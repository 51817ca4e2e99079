package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/domain/ports/repository"
)

const (
	codeTTL         = 10 * time.Minute
	maxVerifyTries  = 5
	sendLimit       = 3
	sendLimitWindow = time.Hour
)

// RateLimiter is the slice of the redis limiter this use case needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// VerificationUseCase issues and checks 6-digit email verification codes.
// Codes are ephemeral: each send supersedes the previous one, a successful
// verify consumes the code and flips the organization's verified flag.
type VerificationUseCase struct {
	codes   repository.VerificationCodeRepository
	orgs    repository.OrganizationRepository
	limiter RateLimiter
	mailer  adapter.EmailSender
	now     func() time.Time
	log     *zerolog.Logger
}

func NewVerificationUseCase(
	codes repository.VerificationCodeRepository,
	orgs repository.OrganizationRepository,
	limiter RateLimiter,
	mailer adapter.EmailSender,
	logger *zerolog.Logger,
) *VerificationUseCase {
	l := logger.With().Str("component", "VerificationUseCase").Logger()
	return &VerificationUseCase{codes: codes, orgs: orgs, limiter: limiter, mailer: mailer, now: time.Now, log: &l}
}

// Send generates and emails a fresh code, rate limited per address.
func (uc *VerificationUseCase) Send(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.ErrInvalidArgument
	}
	allowed, err := uc.limiter.Allow(ctx, sendRateKey(email), sendLimit, sendLimitWindow)
	if err != nil {
		// limiter outage should not block verification entirely
		uc.log.Warn().Err(err).Msg("rate limiter unavailable; allowing send")
	} else if !allowed {
		return domain.ErrRateLimited
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return err
	}
	now := uc.now()
	vc := &model.VerificationCode{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(codeTTL),
	}
	if err := uc.codes.Save(ctx, repository.NoTX, vc); err != nil {
		return err
	}
	return uc.mailer.Send(ctx, "", email, adapter.TemplateVerificationCode, map[string]string{"code": code})
}

// Verify consumes the code on success. Wrong guesses count against a cap of
// five attempts per code.
func (uc *VerificationUseCase) Verify(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	vc, err := uc.codes.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrCodeNotFound
		}
		return err
	}
	if vc.Expired(uc.now()) {
		return domain.ErrCodeExpired
	}
	if vc.Attempts >= maxVerifyTries {
		return domain.ErrTooManyAttempts
	}
	if vc.Code != strings.TrimSpace(code) {
		if err := uc.codes.IncrementAttempts(ctx, repository.NoTX, email); err != nil {
			uc.log.Warn().Err(err).Msg("attempt tracking failed")
		}
		return domain.ErrCodeMismatch
	}
	if err := uc.codes.Delete(ctx, repository.NoTX, email); err != nil {
		return err
	}
	uc.markOrganizationVerified(ctx, email)
	return nil
}

// markOrganizationVerified flips the verified flag for the organization
// whose contact email just verified, best effort.
func (uc *VerificationUseCase) markOrganizationVerified(ctx context.Context, email string) {
	org, err := uc.orgs.FindByContactEmail(ctx, repository.NoTX, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.log.Warn().Err(err).Msg("organization lookup failed")
		}
		return
	}
	if org.Verified {
		return
	}
	if err := uc.orgs.MarkVerified(ctx, repository.NoTX, org.ID); err != nil {
		uc.log.Warn().Err(err).Str("org_id", org.ID).Msg("mark verified failed")
	}
}

func sendRateKey(email string) string {
	return "verify_send:" + email
}
