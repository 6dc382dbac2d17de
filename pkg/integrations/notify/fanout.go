package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Fanout delivers an alert to every configured notifier. Disabled
// notifiers are skipped quietly; other failures are collected.
type Fanout struct {
	notifiers []domain.Notifier
}

func NewFanout(notifiers ...domain.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

func (f *Fanout) Name() string {
	return "fanout"
}

// Notify returns nil when at least one notifier delivered the alert.
func (f *Fanout) Notify(ctx context.Context, alert domain.Alert) error {
	var errs []error
	delivered := 0

	for _, n := range f.notifiers {
		err := n.Notify(ctx, alert)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, domain.ErrNotifierDisabled):
			log.Debug().Str("notifier", n.Name()).Msg("Notifier not configured, skipping")
		default:
			log.Error().Err(err).Str("notifier", n.Name()).Str("post_id", alert.PostID).Msg("Failed to send alert")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}

	if delivered > 0 {
		return nil
	}

	if len(errs) == 0 {
		return domain.ErrNotifierDisabled
	}

	return errors.Join(errs...)
}
