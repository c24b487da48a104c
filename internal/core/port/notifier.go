package port

import "context"

// Notifier delivers one-time codes and notices to an address out-of-band.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
