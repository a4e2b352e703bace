// Package notifications delivers recalculation run summaries to the configured
// channels.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/incident-metrics/internal/reliability"
)

// Sender delivers a run summary over one channel.
type Sender interface {
	Channel() string
	NotifyRecalculation(ctx context.Context, result *reliability.Result) error
}

// Dispatcher fans a run summary out to every sender.
type Dispatcher struct {
	senders []Sender
}

var _ reliability.RunNotifier = (*Dispatcher)(nil)

// NewDispatcher creates a new dispatcher. Nil senders are skipped.
func NewDispatcher(senders ...Sender) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range senders {
		if s != nil {
			d.senders = append(d.senders, s)
		}
	}
	return d
}

// Len returns the number of configured senders.
func (d *Dispatcher) Len() int {
	return len(d.senders)
}

// NotifyRecalculation tries every sender, even after a failure, and returns the
// joined errors.
func (d *Dispatcher) NotifyRecalculation(ctx context.Context, result *reliability.Result) error {
	var errs []error

	for _, s := range d.senders {
		start := time.Now()
		err := s.NotifyRecalculation(ctx, result)
		recordSendDuration(s.Channel(), time.Since(start))

		if err != nil {
			recordSent(s.Channel(), "failed")
			slog.Error("failed to send run summary",
				"channel", s.Channel(),
				"run_id", result.RunID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Channel(), err))
			continue
		}
		recordSent(s.Channel(), "sent")
	}

	return errors.Join(errs...)
}
