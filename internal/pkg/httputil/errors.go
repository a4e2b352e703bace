package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/incident-metrics/internal/pkg/ctxlog"
)

// ErrorMapping maps a domain error to an HTTP status.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // defaults to err.Error()
}

// HandleError writes the first matching mapping for err.
// Unmapped errors are logged and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		if m.Status >= http.StatusInternalServerError {
			ctxlog.FromContext(ctx).Error("request failed", "status", m.Status, "error", err)
		}
		Error(w, m.Status, msg)
		return
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
