package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-screener/internal/config"
	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
	"github.com/fairyhunter13/ai-interview-screener/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Interviews *usecase.InterviewService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Nil checks mean the corresponding backend is not configured and is skipped
// by readiness probing.
func NewServer(cfg config.Config, interviews *usecase.InterviewService, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Interviews: interviews, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

func acceptable(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
	}})
	return false
}

func decodeValidated(w http.ResponseWriter, r *http.Request, req any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(req); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

type activitiesResponse struct {
	Activities []domain.Activity `json:"activities"`
}

// ParticipantsHandler handles the "participant joined" signal. It creates the
// interview session if needed and returns the greeting activities; a rejoin
// returns the prompt for the current stage.
func (s *Server) ParticipantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptable(w, r) {
			return
		}
		var req struct {
			CandidateID string `json:"candidate_id" validate:"required,max=128"`
		}
		if !decodeValidated(w, r, &req) {
			return
		}
		acts, err := s.Interviews.HandleJoin(r.Context(), req.CandidateID)
		if err != nil {
			writeError(w, r, fmt.Errorf("participant join: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, activitiesResponse{Activities: acts})
	}
}

// TurnsHandler routes one inbound candidate message through the interview
// state machine and returns the interviewer's reply activities. Text is
// allowed to be empty; the interview core answers empty turns with a
// re-prompt instead of rejecting them.
func (s *Server) TurnsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptable(w, r) {
			return
		}
		var req struct {
			CandidateID string `json:"candidate_id" validate:"required,max=128"`
			Text        string `json:"text" validate:"max=8000"`
		}
		if !decodeValidated(w, r, &req) {
			return
		}
		acts, err := s.Interviews.HandleTurn(r.Context(), req.CandidateID, req.Text)
		if err != nil {
			writeError(w, r, fmt.Errorf("turn: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, activitiesResponse{Activities: acts})
	}
}

// ReadyzHandler returns a readiness handler that probes the configured
// backends. Unconfigured backends are omitted from the checks.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	probes := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"db", s.DBCheck},
		{"redis", s.RedisCheck},
		{"kafka", s.KafkaCheck},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK = false
				c.Details = err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
