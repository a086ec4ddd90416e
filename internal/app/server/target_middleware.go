package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"scangate/internal/api/dto"
	"scangate/internal/validation"
)

const maxTargetBody = 16 << 10

type contextKey int

const targetContextKey contextKey = iota

// TargetFromContext returns the target accepted by requireValidTarget.
func TargetFromContext(ctx context.Context) (validation.Target, bool) {
	target, ok := ctx.Value(targetContextKey).(validation.Target)
	return target, ok
}

// requireValidTarget reads the "target" body field, rejects it with
// INVALID_TARGET or forwards the cleaned value through the request context.
// A body that is not JSON counts as a missing target.
func requireValidTarget(v *validation.TargetValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body dto.ScanTarget
			if err := json.NewDecoder(io.LimitReader(r.Body, maxTargetBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				log.Debug("target body not decodable", "path", r.URL.Path, "error", err)
				body = dto.ScanTarget{}
			}

			target, err := v.Validate(body.TargetString())
			if err != nil {
				var rejection *validation.RejectionError
				reason := err.Error()
				if errors.As(err, &rejection) {
					reason = rejection.Reason
				}
				writeJSON(w, http.StatusBadRequest, dto.TargetRejection{
					Error:   "Invalid target",
					Code:    "INVALID_TARGET",
					Message: reason,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), targetContextKey, target)))
		})
	}
}
