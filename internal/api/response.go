// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/wingedpig/chord/internal/errs"
)

// writeTagged writes a JSON body whose "type" field discriminates the
// response variant, replacing the teacher's generic {data, error, meta}
// envelope (internal/api/handlers/response.go) per the wire protocol's
// enumerated variant list.
func writeTagged(w http.ResponseWriter, status int, typ string, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["type"] = typ

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

// writeError writes the single "error" response variant.
func writeError(w http.ResponseWriter, status int, message string) {
	writeTagged(w, status, "error", map[string]any{"message": message})
}

// writeErr maps a *errs.Error (or any error) to an HTTP status and the
// "error" variant, so handlers never string-match error messages.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusForKind(err), err.Error())
}

func statusForKind(err error) int {
	switch {
	case errs.Is(err, errs.KindSessionNotFound),
		errs.Is(err, errs.KindCommitNotFound),
		errs.Is(err, errs.KindProjectNotFound),
		errs.Is(err, errs.KindSocketNotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.KindInvalidModel),
		errs.Is(err, errs.KindOutOfRange),
		errs.Is(err, errs.KindJSONError),
		errs.Is(err, errs.KindPathError):
		return http.StatusBadRequest
	case errs.Is(err, errs.KindNothingToCommit),
		errs.Is(err, errs.KindNoActiveResponse),
		errs.Is(err, errs.KindAlreadyRunning):
		return http.StatusConflict
	case errs.Is(err, errs.KindToolNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
