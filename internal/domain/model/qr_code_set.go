package model

import (
	"time"

	"blessbox/internal/domain"
)

// QRCode is one printable code within a set.
type QRCode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	IsActive bool   `json:"isActive"`
}

// FormField declares one field of a set's registration form schema.
// Submissions missing a required field are rejected before persistence.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"` // text | email | phone | select
	Required bool   `json:"required"`
}

// QRCodeSet groups the codes an organization prints for one event,
// together with the form schema attendees fill in.
type QRCodeSet struct {
	ID             string // UUID
	OrganizationID string
	Name           string
	QRCodes        []QRCode
	FormSchema     []FormField
	ScanCount      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CodeByLabel finds an active code by its label.
func (s *QRCodeSet) CodeByLabel(label string) (*QRCode, error) {
	for i := range s.QRCodes {
		if s.QRCodes[i].Label == label && s.QRCodes[i].IsActive {
			return &s.QRCodes[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// ValidateSubmission checks form data against the schema. Required fields
// must be present and non-empty.
func (s *QRCodeSet) ValidateSubmission(data map[string]string) error {
	for _, f := range s.FormSchema {
		if !f.Required {
			continue
		}
		if v, ok := data[f.Name]; !ok || v == "" {
			return domain.ErrMissingField
		}
	}
	return nil
}
