package model

import (
	"strings"
	"time"

	"blessbox/internal/domain"
)

// Organization is the tenant entity. Every QR code set, subscription and
// (indirectly) registration belongs to exactly one organization.
type Organization struct {
	ID           string // UUID
	Name         string
	Slug         string // URL-safe, unique; used in public registration links
	ContactEmail string
	Verified     bool
	CustomDomain string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrganization builds a tenant with a normalized slug.
func NewOrganization(id, name, slug, contactEmail string) (*Organization, error) {
	if id == "" || name == "" || slug == "" || contactEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Organization{
		ID:           id,
		Name:         name,
		Slug:         strings.ToLower(strings.TrimSpace(slug)),
		ContactEmail: strings.ToLower(strings.TrimSpace(contactEmail)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
