package port

import "context"

// Mailer sends one plain-text email and returns the provider's
// message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, text string) (string, error)
}
