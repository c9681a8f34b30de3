// Package notify defines the outbound notification collaborator. Delivery
// is fire-and-forget: a failed send is logged and never rolls back the
// operation that triggered it.
package notify

import "github.com/rs/zerolog/log"

// Template names for the messages this core emits.
const (
	TemplateActivation    = "account-activation"
	TemplatePasswordReset = "password-reset"
)

// Sender dispatches a templated message to a recipient. Implementations own
// transport, retries and formatting; callers never wait on them.
type Sender interface {
	Send(template, to string, data map[string]any)
}

// LogSender writes notifications to the service log instead of delivering
// them. The default in development and the fallback when no mailer is
// configured; codes still reach the operator via the log.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(template, to string, data map[string]any) {
	log.Info().
		Str("template", template).
		Str("to", to).
		Interface("data", data).
		Msg("notification dispatched to log sink")
}
