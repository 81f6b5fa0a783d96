package views

import (
	"context"
	"log/slog"

	"daybook/internal/journal"
	"daybook/internal/logging"
)

// Hook applies a just-captured event to its view inline with the capture
// request, so readers see fresh documents without waiting for the stream
// consumer's next poll. Failures are logged and swallowed: the stream
// consumer replays the event and remains the authoritative path.
type Hook struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHook builds the inline update hook.
func NewHook(dispatcher *Dispatcher, logger *slog.Logger) *Hook {
	return &Hook{
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "view-hook"),
	}
}

// OnEventCaptured applies the event best-effort. It never fails the capture.
func (h *Hook) OnEventCaptured(ctx context.Context, event *journal.Event) {
	if h == nil || h.dispatcher == nil || event == nil {
		return
	}
	if err := h.dispatcher.Apply(ctx, event); err != nil {
		h.logger.Warn("inline view update failed; stream consumer will catch up",
			logging.String(logging.FieldEventID, event.UID),
			logging.Error(err))
	}
}
