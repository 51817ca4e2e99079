package email

import (
	"context"

	"github.com/rs/zerolog"

	"blessbox/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*NoopSender)(nil)

// NoopSender logs instead of sending. Used in dev mode and tests.
type NoopSender struct {
	log *zerolog.Logger
}

func NewNoopSender(logger *zerolog.Logger) *NoopSender {
	l := logger.With().Str("component", "NoopEmailSender").Logger()
	return &NoopSender{log: &l}
}

func (s *NoopSender) Send(ctx context.Context, orgID, to string, template adapter.TemplateType, vars map[string]string) error {
	s.log.Info().Str("to", to).Str("template", string(template)).Fields(map[string]interface{}{"vars": vars}).Msg("email suppressed (noop)")
	return nil
}
