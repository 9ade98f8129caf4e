package outbox

import (
	"context"
	"log/slog"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// LogNotifier writes events to the structured log. It is the default
// consumer when no external delivery channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier that logs every event.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("notifier", "log")}
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.Event) error {
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type.String()),
		slog.String("item_id", event.WorkItemID.String()),
		slog.String("actor_id", event.ActorID.String()),
	}
	if event.Reason != nil {
		attrs = append(attrs, slog.String("reason", *event.Reason))
	}
	n.log.InfoContext(ctx, "work item event", attrs...)
	return nil
}
