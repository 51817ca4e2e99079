package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/domain/ports/repository"
)

// RegistrationUseCase handles public form submissions and check-in.
type RegistrationUseCase struct {
	orgs    repository.OrganizationRepository
	sets    repository.QRCodeSetRepository
	regs    repository.RegistrationRepository
	usage   *UsageUseCase
	mailer  adapter.EmailSender
	now     func() time.Time
	log     *zerolog.Logger
}

func NewRegistrationUseCase(
	orgs repository.OrganizationRepository,
	sets repository.QRCodeSetRepository,
	regs repository.RegistrationRepository,
	usage *UsageUseCase,
	mailer adapter.EmailSender,
	logger *zerolog.Logger,
) *RegistrationUseCase {
	l := logger.With().Str("component", "RegistrationUseCase").Logger()
	return &RegistrationUseCase{orgs: orgs, sets: sets, regs: regs, usage: usage, mailer: mailer, now: time.Now, log: &l}
}

// Submit accepts a public registration against org slug + QR label.
// The form data is validated against the set's schema before anything is
// persisted; a fresh unique check-in token is issued with the row.
func (uc *RegistrationUseCase) Submit(ctx context.Context, orgSlug, qrLabel string, formData map[string]string) (*model.Registration, error) {
	org, err := uc.orgs.FindBySlug(ctx, repository.NoTX, orgSlug)
	if err != nil {
		return nil, err
	}
	set, err := uc.sets.FindByCodeLabel(ctx, repository.NoTX, org.ID, qrLabel)
	if err != nil {
		return nil, err
	}
	code, err := set.CodeByLabel(qrLabel)
	if err != nil {
		return nil, err
	}

	ok, err := uc.usage.CanPerform(ctx, org.ID, ActionRegistration)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLimitReached
	}
	if err := set.ValidateSubmission(formData); err != nil {
		return nil, err
	}

	token, err := generateCheckInToken()
	if err != nil {
		return nil, fmt.Errorf("generate check-in token: %w", err)
	}
	reg := &model.Registration{
		ID:           uuid.NewString(),
		QRCodeSetID:  set.ID,
		QRCodeID:     code.ID,
		Data:         formData,
		RegisteredAt: uc.now(),
		CheckInToken: token,
		TokenStatus:  model.TokenStatusActive,
	}
	if err := uc.regs.Save(ctx, repository.NoTX, reg); err != nil {
		return nil, err
	}

	// Counters and the ticket email are best-effort: the registration row is
	// already the source of truth.
	uc.usage.TrackRegistration(ctx, org.ID)
	uc.usage.TrackQRCodeScan(ctx, set.ID)
	if to, ok := formData["email"]; ok && to != "" {
		if err := uc.mailer.Send(ctx, org.ID, to, adapter.TemplateRegistrationTicket, map[string]string{
			"organization": org.Name,
			"token":        reg.CheckInToken,
		}); err != nil {
			uc.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("ticket email failed")
		}
	}
	return reg, nil
}

// Get returns a registration by id.
func (uc *RegistrationUseCase) Get(ctx context.Context, id string) (*model.Registration, error) {
	return uc.regs.FindByID(ctx, repository.NoTX, id)
}

// ResolveOwner returns the registration together with the owning
// organization id, for the session-ownership half of check-in auth.
func (uc *RegistrationUseCase) ResolveOwner(ctx context.Context, regID string) (*model.Registration, string, error) {
	reg, err := uc.regs.FindByID(ctx, repository.NoTX, regID)
	if err != nil {
		return nil, "", err
	}
	set, err := uc.sets.FindByID(ctx, repository.NoTX, reg.QRCodeSetID)
	if err != nil {
		return nil, "", err
	}
	return reg, set.OrganizationID, nil
}

// CheckIn marks a registration checked in. The update is guarded by
// `checked_in_at IS NULL`, so exactly one of two simultaneous attempts
// succeeds; the loser gets ErrAlreadyCheckedIn.
func (uc *RegistrationUseCase) CheckIn(ctx context.Context, id, checkedInBy string) (*model.Registration, error) {
	ok, err := uc.regs.CheckIn(ctx, repository.NoTX, id, checkedInBy, uc.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := uc.regs.FindByID(ctx, repository.NoTX, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyCheckedIn
	}
	return uc.regs.FindByID(ctx, repository.NoTX, id)
}

// UndoCheckIn clears the check-in fields and reactivates the token.
func (uc *RegistrationUseCase) UndoCheckIn(ctx context.Context, id string) (*model.Registration, error) {
	ok, err := uc.regs.UndoCheckIn(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := uc.regs.FindByID(ctx, repository.NoTX, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotCheckedIn
	}
	return uc.regs.FindByID(ctx, repository.NoTX, id)
}

// List returns registrations for a QR code set with pagination.
func (uc *RegistrationUseCase) List(ctx context.Context, setID string, offset, limit int) ([]*model.Registration, int, error) {
	regs, err := uc.regs.ListByQRCodeSet(ctx, repository.NoTX, setID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := uc.regs.CountByQRCodeSet(ctx, repository.NoTX, setID)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// Delete removes a registration. Admin-only; registrations are otherwise
// never deleted.
func (uc *RegistrationUseCase) Delete(ctx context.Context, id string) error {
	return uc.regs.Delete(ctx, repository.NoTX, id)
}
