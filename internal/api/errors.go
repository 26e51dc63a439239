// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/gstbackend/internal/backend"
	"github.com/ManuGH/gstbackend/internal/dispatch"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/player"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps backend errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, backend.ErrPlayerUnknown), errors.Is(err, devices.ErrUnknownDevice):
		code = http.StatusNotFound
	case errors.Is(err, backend.ErrPlayerExists), errors.Is(err, graph.ErrAlreadyConnected):
		code = http.StatusConflict
	case errors.Is(err, player.ErrInvalidSource), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, backend.ErrClosed), errors.Is(err, dispatch.ErrStopped):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")
