// Package http provides the gateway's HTTP handlers for circuit status
// introspection and manual circuit resets.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"circuitguard/internal/client"
	"circuitguard/internal/handler/http/respond"
	"circuitguard/internal/observability/logging"
)

// StatusHandler serves GET /circuit-status with the aggregate circuit
// report for every registered service.
func StatusHandler(reg *client.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		respond.JSON(w, http.StatusOK, reg.AllCircuitStatus())
	})
}

type resetRequest struct {
	Service string `json:"service"`
}

// ResetHandler serves POST /circuit-reset. It triggers an immediate health
// probe for the named service; a healthy probe forces the circuit closed.
func ResetHandler(reg *client.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}

		logger := logging.WithRequestID(r.Context(), slog.Default())

		var req resetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Service == "" {
			respond.Error(w, http.StatusBadRequest, errors.New("service name is required"))
			return
		}

		logger.Info("manual circuit reset requested", slog.String("service", req.Service))

		ok, err := reg.Reset(r.Context(), req.Service)
		if err != nil {
			var unknownErr *client.UnknownServiceError
			if errors.As(err, &unknownErr) {
				respond.Error(w, http.StatusNotFound, err)
				return
			}
			// The probe ran and the service is still unhealthy; that is a
			// valid outcome, not a server error.
			logger.Warn("reset probe failed",
				slog.String("service", req.Service),
				slog.Any("error", err))
		}

		var result client.ResetResult
		result.Result.Success = ok
		respond.JSON(w, http.StatusOK, result)
	})
}
