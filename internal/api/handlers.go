// File: internal/api/handlers.go
package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/session"
)

// errNoKnobs is returned by /config when the query names no known knob.
var errNoKnobs = errors.New("no recognized parameters")

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// handleConfig applies every recognized knob in the query string, or none
// of them if any is invalid.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var applied []string
	_, err := s.ctrl.UpdateConfig(func(cfg humanoid.Config) (humanoid.Config, error) {
		next, keys, err := cfg.WithParams(r.URL.Query())
		if err != nil {
			return cfg, err
		}
		if len(keys) == 0 {
			return cfg, errNoKnobs
		}
		applied = keys
		return next, nil
	})
	switch {
	case errors.Is(err, errNoKnobs):
		writeText(w, http.StatusBadRequest, "No recognized parameters")
		return
	case err != nil:
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("Typing config updated", zap.Strings("keys", applied))
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	samples, err := DecodeSamples(body)
	switch {
	case errors.Is(err, ErrNoData):
		writeText(w, http.StatusBadRequest, "No data")
		return
	case err != nil:
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.ctrl.Calibrate(samples)
	if errors.Is(err, humanoid.ErrInsufficientData) {
		writeText(w, http.StatusBadRequest,
			fmt.Sprintf("Need more typing data (at least %d hold and %d flight samples)",
				humanoid.MinCalibrationSamples, humanoid.MinCalibrationSamples))
		return
	}
	if err != nil {
		s.log.Error("Calibration failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Calibration failed")
		return
	}
	s.writeJSON(w, http.StatusOK, summarize(profile))
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}
	// Invalid UTF-8 is dropped rather than typed as replacement characters.
	text := strings.ToValidUTF8(string(body), "")

	status, err := s.ctrl.Start(r.Context(), text)
	switch {
	case errors.Is(err, session.ErrBusy):
		writeText(w, http.StatusConflict, "Already typing")
		return
	case errors.Is(err, session.ErrEmptyText):
		writeText(w, http.StatusBadRequest, "Empty text")
		return
	case err != nil:
		s.log.Warn("Failed to start typing session", zap.Error(err))
		writeText(w, http.StatusServiceUnavailable, "Could not start typing")
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Started typing %d chars", status.Total))
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Stop()
	writeText(w, http.StatusOK, "Stopped")
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	paused, err := s.ctrl.TogglePause()
	if errors.Is(err, session.ErrNotRunning) {
		writeText(w, http.StatusBadRequest, "Not typing")
		return
	}
	if paused {
		writeText(w, http.StatusOK, "Paused")
		return
	}
	writeText(w, http.StatusOK, "Resumed")
}

// handleSetWPM changes only the target rate. A running session adopts it at
// the next character.
func (s *Server) handleSetWPM(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("wpm")
	if raw == "" {
		writeText(w, http.StatusBadRequest, "Missing wpm")
		return
	}
	wpm, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid wpm")
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("WPM set to %d", s.ctrl.SetWPM(wpm)))
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
