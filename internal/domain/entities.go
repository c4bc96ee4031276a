// Package domain holds the interview entities, ports, and error taxonomy.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrSchemaInvalid   = errors.New("schema invalid")
	ErrInternal        = errors.New("internal error")
)

// FallbackJobDescription substitutes for real JD content when the document
// store is unreachable or the selected id has no stored text. The interview
// continues against this generic text rather than aborting.
const FallbackJobDescription = "We are looking for a motivated professional " +
	"with strong communication skills, relevant hands-on experience, and the " +
	"ability to work effectively in a team."

// Speaker labels for transcript entries.
const (
	SpeakerCandidate   = "candidate"
	SpeakerInterviewer = "interviewer"
)

// TurnRecord is one transcript line. History is append-only and kept in
// strict chronological order; question generation relies on that ordering.
type TurnRecord struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Entity is a single extracted item from a candidate answer, e.g.
// {Type: "skill", Value: "Kubernetes"}.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Assessment is the per-turn structured record derived from one candidate
// answer. Nil scores mean the analysis degraded or the backend returned
// values outside [1,5].
type Assessment struct {
	Clarity   *int     `json:"clarity,omitempty"`
	Relevance *int     `json:"relevance,omitempty"`
	Summary   string   `json:"summary"`
	Entities  []Entity `json:"entities"`
}

// DegradedAssessment is recorded when the understanding backend returns
// malformed or off-contract output for an answer.
func DegradedAssessment() Assessment {
	return Assessment{Summary: "Analysis failed", Entities: []Entity{}}
}

// Session is the full mutable record of one candidate's progress through the
// interview. It lives from first contact until the closing summary is
// delivered, then it is destroyed.
type Session struct {
	ID                 string                `json:"id"`
	CandidateID        string                `json:"candidate_id"`
	CandidateName      string                `json:"candidate_name,omitempty"`
	Stage              Stage                 `json:"stage"`
	JobDescriptionID   string                `json:"jd_id,omitempty"`
	JobDescriptionText string                `json:"jd_text,omitempty"`
	AvailableJDs       []string              `json:"available_jds"`
	AskedQuestions     int                   `json:"asked_questions"`
	MaxQuestions       int                   `json:"max_questions"`
	Assessments        map[string]Assessment `json:"assessments"`
	AssessmentOrder    []string              `json:"assessment_order"`
	History            []TurnRecord          `json:"history"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// NewSession creates a session in the greeting stage for a candidate.
func NewSession(id, candidateID string, availableJDs []string, maxQuestions int) *Session {
	now := time.Now().UTC()
	jds := make([]string, len(availableJDs))
	copy(jds, availableJDs)
	return &Session{
		ID:           id,
		CandidateID:  candidateID,
		Stage:        StageGreeting,
		AvailableJDs: jds,
		MaxQuestions: maxQuestions,
		Assessments:  make(map[string]Assessment),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance moves the session to the next stage. Transitions only ever move
// forward through the fixed order; backward moves and moves out of the
// terminal stage are programming errors.
func (s *Session) Advance(next Stage) error {
	if !next.Valid() {
		return fmt.Errorf("op=session.advance: %w: %s", ErrInvalidArgument, next)
	}
	if s.Stage.Terminal() {
		return fmt.Errorf("op=session.advance: %w: session already complete", ErrConflict)
	}
	if next < s.Stage {
		return fmt.Errorf("op=session.advance: %w: %s -> %s moves backward", ErrConflict, s.Stage, next)
	}
	s.Stage = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetName records the extracted candidate name. Write-once.
func (s *Session) SetName(name string) error {
	if s.CandidateName != "" {
		return fmt.Errorf("op=session.set_name: %w: name already set", ErrConflict)
	}
	s.CandidateName = name
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SelectJD records the resolved job description. Write-once.
func (s *Session) SelectJD(id, content string) error {
	if s.JobDescriptionID != "" {
		return fmt.Errorf("op=session.select_jd: %w: jd already selected", ErrConflict)
	}
	s.JobDescriptionID = id
	s.JobDescriptionText = content
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendTurn adds one transcript line.
func (s *Session) AppendTurn(speaker, text string) {
	s.History = append(s.History, TurnRecord{Speaker: speaker, Text: text})
	s.UpdatedAt = time.Now().UTC()
}

// RecordAssessment stores the assessment for a stage label, tracking label
// order so the final report iterates in ordinal order.
func (s *Session) RecordAssessment(label string, a Assessment) {
	if s.Assessments == nil {
		s.Assessments = make(map[string]Assessment)
	}
	if _, exists := s.Assessments[label]; !exists {
		s.AssessmentOrder = append(s.AssessmentOrder, label)
	}
	s.Assessments[label] = a
	s.UpdatedAt = time.Now().UTC()
}

// RecentHistory returns the last n transcript lines. The full transcript
// stays on the session for auditing; only this bounded window is sent to
// question generation.
func (s *Session) RecentHistory(n int) []TurnRecord {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Activity is one outbound message: plain text plus the sanitized speech
// markup rendering of the same text.
type Activity struct {
	Text         string `json:"text"`
	SpokenMarkup string `json:"spoken_markup"`
}

// CompletionReport is published when an interview finishes.
type CompletionReport struct {
	CandidateID        string    `json:"candidate_id"`
	CandidateName      string    `json:"candidate_name"`
	JobDescriptionID   string    `json:"jd_id"`
	AvgClarity         string    `json:"avg_clarity"`
	AvgRelevance       string    `json:"avg_relevance"`
	QualificationScore string    `json:"qualification_score"`
	Report             string    `json:"report"`
	CompletedAt        time.Time `json:"completed_at"`
}

// AssessmentInput carries everything the structured-assessment task needs.
type AssessmentInput struct {
	Answer        string
	JDExcerpt     string
	CandidateName string
}

// QuestionInput carries everything the question-generation task needs.
type QuestionInput struct {
	JDText        string
	CandidateName string
	History       []TurnRecord
	Ordinal       int
}

// Ports

// SessionStore owns sessions for their lifetime, keyed by candidate
// identity. Implementations must be safe for concurrent use by independent
// turn handlers.
type SessionStore interface {
	// GetOrCreate returns the existing session for the candidate or stores
	// the one produced by create. The bool reports whether a new session was
	// created.
	GetOrCreate(ctx Context, candidateID string, create func() *Session) (*Session, bool, error)
	Get(ctx Context, candidateID string) (*Session, error)
	Save(ctx Context, s *Session) error
	Delete(ctx Context, candidateID string) error
	// DeleteIdle removes sessions not updated within the given duration and
	// returns how many were removed. Stores with native expiry may return 0.
	DeleteIdle(ctx Context, olderThan time.Duration) (int, error)
}

// Understanding is the semantic extraction gateway port. None of the methods
// return errors: every backend failure is converted into the task-specific
// fallback so a screening session never hard-fails on a transient error.
type Understanding interface {
	// ResolveSelection maps an utterance onto exactly one of the valid ids.
	// ok is false when nothing matched or the backend misbehaved.
	ResolveSelection(ctx Context, utterance string, valid []string) (id string, ok bool)
	// ExtractName pulls the candidate's name from an utterance.
	ExtractName(ctx Context, utterance string) (name string, ok bool)
	// AssessAnswer produces the structured per-turn assessment, degraded on
	// any failure.
	AssessAnswer(ctx Context, in AssessmentInput) Assessment
	// GenerateQuestion produces one JD-grounded follow-up question, falling
	// back to a fixed question referencing the ordinal.
	GenerateQuestion(ctx Context, in QuestionInput) string
}

// JobDescriptionRepo serves job description text by identifier.
type JobDescriptionRepo interface {
	GetContent(ctx Context, id string) (string, error)
	ListIDs(ctx Context) ([]string, error)
}

// EventPublisher receives the final report of a completed interview.
type EventPublisher interface {
	PublishCompleted(ctx Context, r CompletionReport) error
}

// Context is an alias to context.Context so domain signatures stay compact.
type Context = context.Context
