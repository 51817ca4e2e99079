package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

// QRCodeSetUseCase manages an organization's QR code sets and the CSV export
// of their registrations. Set creation and exports are both plan-gated.
type QRCodeSetUseCase struct {
	sets  repository.QRCodeSetRepository
	regs  repository.RegistrationRepository
	usage *UsageUseCase
	now   func() time.Time
	log   *zerolog.Logger
}

func NewQRCodeSetUseCase(sets repository.QRCodeSetRepository, regs repository.RegistrationRepository, usage *UsageUseCase, logger *zerolog.Logger) *QRCodeSetUseCase {
	l := logger.With().Str("component", "QRCodeSetUseCase").Logger()
	return &QRCodeSetUseCase{sets: sets, regs: regs, usage: usage, now: time.Now, log: &l}
}

// Create persists a new set after checking the plan's set cap. Labels must be
// unique within the set; every code starts active.
func (uc *QRCodeSetUseCase) Create(ctx context.Context, orgID, name string, labels []string, schema []model.FormField) (*model.QRCodeSet, error) {
	if orgID == "" || name == "" || len(labels) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	ok, err := uc.usage.CanPerform(ctx, orgID, ActionCreateQRSet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLimitReached
	}

	seen := make(map[string]bool, len(labels))
	codes := make([]model.QRCode, 0, len(labels))
	for _, label := range labels {
		if label == "" || seen[label] {
			return nil, domain.ErrInvalidArgument
		}
		seen[label] = true
		codes = append(codes, model.QRCode{ID: uuid.NewString(), Label: label, IsActive: true})
	}

	now := uc.now()
	set := &model.QRCodeSet{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Name:           name,
		QRCodes:        codes,
		FormSchema:     schema,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.sets.Save(ctx, repository.NoTX, set); err != nil {
		return nil, err
	}
	return set, nil
}

// Get returns a set, enforcing organization ownership.
func (uc *QRCodeSetUseCase) Get(ctx context.Context, orgID, setID string) (*model.QRCodeSet, error) {
	set, err := uc.sets.FindByID(ctx, repository.NoTX, setID)
	if err != nil {
		return nil, err
	}
	if set.OrganizationID != orgID {
		return nil, domain.ErrForbidden
	}
	return set, nil
}

// List returns all sets owned by the organization.
func (uc *QRCodeSetUseCase) List(ctx context.Context, orgID string) ([]*model.QRCodeSet, error) {
	return uc.sets.ListByOrganization(ctx, repository.NoTX, orgID)
}

// ExportCSV renders every registration of a set as CSV. Columns are the
// schema fields plus any extra keys seen in the data, then the check-in
// fields. Exports count against the plan's export cap.
func (uc *QRCodeSetUseCase) ExportCSV(ctx context.Context, orgID, setID string) ([]byte, error) {
	set, err := uc.Get(ctx, orgID, setID)
	if err != nil {
		return nil, err
	}
	ok, err := uc.usage.CanPerform(ctx, orgID, ActionExport)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLimitReached
	}

	regs, err := uc.regs.ListByQRCodeSet(ctx, repository.NoTX, setID, 0, -1)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(set.FormSchema))
	known := make(map[string]bool)
	for _, f := range set.FormSchema {
		fields = append(fields, f.Name)
		known[f.Name] = true
	}
	extra := make(map[string]bool)
	for _, reg := range regs {
		for k := range reg.Data {
			if !known[k] {
				extra[k] = true
			}
		}
	}
	extraCols := make([]string, 0, len(extra))
	for k := range extra {
		extraCols = append(extraCols, k)
	}
	sort.Strings(extraCols)
	fields = append(fields, extraCols...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append(append([]string{"id", "registered_at"}, fields...), "checked_in_at", "checked_in_by")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, reg := range regs {
		row := []string{reg.ID, reg.RegisteredAt.Format(time.RFC3339)}
		for _, f := range fields {
			row = append(row, reg.Data[f])
		}
		checkedAt := ""
		if reg.CheckedInAt != nil {
			checkedAt = reg.CheckedInAt.Format(time.RFC3339)
		}
		row = append(row, checkedAt, reg.CheckedInBy)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	uc.usage.TrackExport(ctx, orgID)
	return buf.Bytes(), nil
}
