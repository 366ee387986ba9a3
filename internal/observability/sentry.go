package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/iliyamo/session-auth/internal/queue"
)

// InitSentry is a no-op when dsn is empty.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// SentryNotifier reports security events as Sentry messages.
type SentryNotifier struct {
	Hub *sentry.Hub
}

func NewSentryNotifier() *SentryNotifier {
	return &SentryNotifier{Hub: sentry.CurrentHub()}
}

func (n *SentryNotifier) Notify(_ context.Context, ev queue.SecurityEvent) error {
	n.Hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("event_type", ev.Type)
		scope.SetUser(sentry.User{ID: ev.UserID})
		scope.SetExtra("token_id", ev.TokenID)
		scope.SetExtra("revoked", ev.Revoked)
		scope.SetExtra("occurred_at", ev.OccurredAt)
		n.Hub.CaptureMessage("security event: " + ev.Type)
	})
	return nil
}
