package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/schema"
	"tone-coach-service/internal/session"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON body")

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("code", status).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{OK: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidJSON),
		errors.Is(err, schema.ErrTextRequired),
		errors.Is(err, schema.ErrUtterancesRequired),
		errors.Is(err, schema.ErrInvalidUtterance),
		errors.Is(err, analysis.ErrEmptyText),
		errors.Is(err, analysis.ErrNoUtterances):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyLive):
		return http.StatusConflict
	case errors.Is(err, session.ErrVoiceConfigMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidJSON
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return body, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidJSON
	}
	return nil
}
