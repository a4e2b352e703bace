package mattermost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bissquit/incident-metrics/internal/reliability"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const retryDelay = 2 * time.Second

var printer = message.NewPrinter(language.English)

// NotifyRecalculation posts a run summary. Temporary failures are retried once.
func (s *Sender) NotifyRecalculation(ctx context.Context, result *reliability.Result) error {
	title, body := renderSummary(result)

	err := s.Send(ctx, title, body)
	var statusErr *StatusError
	if err == nil || !errors.As(err, &statusErr) || !statusErr.Temporary() {
		return err
	}

	slog.Warn("mattermost delivery failed, retrying", "error", err, "delay", retryDelay)

	select {
	case <-time.After(retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Send(ctx, title, body)
}

func renderSummary(result *reliability.Result) (string, string) {
	scope := "all years"
	if result.Year != nil {
		scope = fmt.Sprintf("year %d", *result.Year)
	}

	var b strings.Builder
	b.WriteString("| Processed | MTTR updated | MTBF updated | Duration |\n")
	b.WriteString("|---:|---:|---:|---:|\n")
	printer.Fprintf(&b, "| %d | %d | %d | %s |\n",
		result.Processed,
		result.MTTRUpdated,
		result.MTBFUpdated,
		result.Duration.Round(time.Millisecond),
	)
	printer.Fprintf(&b, "\nRun `%s`", result.RunID)

	return "Incident metrics recalculated (" + scope + ")", b.String()
}
