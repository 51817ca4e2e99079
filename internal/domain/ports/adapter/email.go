package adapter

import "context"

// TemplateType selects the provider-side email template.
type TemplateType string

const (
	TemplateVerificationCode   TemplateType = "verification_code"
	TemplateRegistrationTicket TemplateType = "registration_ticket"
	TemplateCancellationNotice TemplateType = "cancellation_notice"
)

// EmailSender is the hex port for the transactional email provider.
// Sends are fire-and-forget from the core's perspective: a failed send is
// an error for the triggering operation to report, never a retry loop.
type EmailSender interface {
	Send(ctx context.Context, orgID, to string, template TemplateType, vars map[string]string) error
}
