package views

import (
	"context"
	"log/slog"
	"time"

	"daybook/internal/journal"
	"daybook/internal/logging"
)

// Dispatcher routes interaction events to the view document they feed.
// Applying an event is idempotent: the same event always lands in the same
// (user, date, field) slot with the same value.
type Dispatcher struct {
	store  *Store
	loc    *time.Location
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher bucketing dates in the given location.
func NewDispatcher(store *Store, loc *time.Location, logger *slog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		store:  store,
		loc:    loc,
		logger: logging.NewComponentLogger(logger, "view-dispatcher"),
	}
}

// Apply materializes one event into its view document. Event kinds with no
// view are ignored without error.
func (d *Dispatcher) Apply(ctx context.Context, event *journal.Event) error {
	date := BucketDate(event.CapturedAt, d.loc)

	switch event.Kind {
	case journal.KindCompass, journal.KindReflection:
		field, value := ClassifyCompass(event)
		if err := d.store.SetCompassField(ctx, event.UserID, date, field, value); err != nil {
			return err
		}
		d.logger.Debug("compass view updated",
			logging.String(logging.FieldUserID, event.UserID),
			logging.String("view_date", date),
			logging.String("field", string(field)),
			logging.String(logging.FieldEventID, event.UID))
		return nil
	case journal.KindWin:
		field, value, ok := ClassifyWin(event)
		if !ok {
			return nil
		}
		if err := d.store.SetWinsField(ctx, event.UserID, date, field, value); err != nil {
			return err
		}
		d.logger.Debug("wins view updated",
			logging.String(logging.FieldUserID, event.UserID),
			logging.String("view_date", date),
			logging.String("field", string(field)),
			logging.String(logging.FieldEventID, event.UID))
		return nil
	default:
		return nil
	}
}
