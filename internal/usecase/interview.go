// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
	"github.com/fairyhunter13/ai-interview-screener/pkg/textx"
)

// InterviewService drives the per-candidate interview state machine. It is
// the single entry point for inbound turns and the only component that
// mutates sessions.
type InterviewService struct {
	Sessions domain.SessionStore
	AI       domain.Understanding
	JDs      domain.JobDescriptionRepo
	// Events may be nil; completion reports are then only logged.
	Events domain.EventPublisher

	MaxQuestions int
	AvailableJDs []string

	locks keyedMutex
}

// NewInterviewService constructs an InterviewService with its dependencies.
func NewInterviewService(store domain.SessionStore, ai domain.Understanding, jds domain.JobDescriptionRepo, events domain.EventPublisher, maxQuestions int, availableJDs []string) *InterviewService {
	return &InterviewService{
		Sessions:     store,
		AI:           ai,
		JDs:          jds,
		Events:       events,
		MaxQuestions: maxQuestions,
		AvailableJDs: availableJDs,
		locks:        keyedMutex{m: make(map[string]*lockEntry)},
	}
}

// keyedMutex serializes turn handling per candidate so two turns from one
// session never interleave, while distinct candidates proceed in parallel.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &lockEntry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

func activity(text string) domain.Activity {
	return domain.Activity{Text: text, SpokenMarkup: textx.SpokenMarkup(text)}
}

// HandleJoin processes a "participant joined" signal: it creates the session
// if needed and returns the greeting. For an existing session it re-sends the
// prompt for the current stage instead of restarting the interview.
func (s *InterviewService) HandleJoin(ctx domain.Context, candidateID string) ([]domain.Activity, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, fmt.Errorf("op=interview.join: %w: candidate id required", domain.ErrInvalidArgument)
	}
	unlock := s.locks.lock(candidateID)
	defer unlock()

	sess, created, err := s.Sessions.GetOrCreate(ctx, candidateID, s.newSession(candidateID))
	if err != nil {
		return nil, fmt.Errorf("op=interview.join: %w", err)
	}
	if created {
		observability.SessionStarted()
		return s.greet(ctx, sess)
	}
	return []domain.Activity{activity(s.stagePrompt(sess))}, nil
}

// HandleTurn routes one inbound candidate message to the stage-appropriate
// handler and returns the outbound activities, in emission order.
func (s *InterviewService) HandleTurn(ctx domain.Context, candidateID, text string) (acts []domain.Activity, err error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, fmt.Errorf("op=interview.turn: %w: candidate id required", domain.ErrInvalidArgument)
	}
	unlock := s.locks.lock(candidateID)
	defer unlock()

	// Any unhandled fault while processing one turn is answered with a
	// generic notice; the stage is untouched, so the candidate's next
	// utterance retries safely.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in turn processing", slog.Any("recover", rec), slog.String("candidate_id", candidateID))
			acts = []domain.Activity{activity(msgTechTrouble)}
			err = nil
		}
	}()

	text = textx.SanitizeText(text)

	sess, created, gerr := s.Sessions.GetOrCreate(ctx, candidateID, s.newSession(candidateID))
	if gerr != nil {
		return nil, fmt.Errorf("op=interview.turn: %w", gerr)
	}
	if created {
		// First contact for this identity: the inbound text predates any
		// question, so greet instead of interpreting it.
		observability.SessionStarted()
		return s.greet(ctx, sess)
	}

	if text == "" {
		return []domain.Activity{activity(msgEmptyInput)}, nil
	}

	start := time.Now()
	stage := sess.Stage
	defer func() { observability.ObserveTurn(stage.String(), time.Since(start)) }()

	switch sess.Stage {
	case domain.StageGreeting:
		// Join signal was lost; recover by greeting now.
		return s.greet(ctx, sess)
	case domain.StageJDSelection:
		acts, err = s.handleJDSelection(ctx, sess, text)
	case domain.StageNamePrompt:
		acts, err = s.handleNamePrompt(ctx, sess, text)
	case domain.StagePreScreen:
		acts, err = s.handlePreScreen(ctx, sess, text)
	case domain.StageJDQuestions:
		acts, err = s.handleJDQuestion(ctx, sess, text)
	case domain.StageClosing:
		return s.finalize(ctx, sess)
	case domain.StageComplete:
		return []domain.Activity{activity(msgAlreadyDone)}, nil
	default:
		slog.Error("unknown interview stage", slog.Int("stage", int(sess.Stage)), slog.String("candidate_id", candidateID))
		return []domain.Activity{activity(msgUnknownState)}, nil
	}
	if err != nil {
		return nil, err
	}
	if serr := s.Sessions.Save(ctx, sess); serr != nil {
		slog.Error("session save failed", slog.Any("error", serr), slog.String("candidate_id", candidateID))
	}
	return acts, nil
}

func (s *InterviewService) newSession(candidateID string) func() *domain.Session {
	return func() *domain.Session {
		return domain.NewSession(uuid.New().String(), candidateID, s.AvailableJDs, s.MaxQuestions)
	}
}

// greet emits the welcome message plus the JD selection request and advances
// out of the greeting stage.
func (s *InterviewService) greet(ctx domain.Context, sess *domain.Session) ([]domain.Activity, error) {
	if sess.Stage == domain.StageGreeting {
		if err := sess.Advance(domain.StageJDSelection); err != nil {
			return nil, err
		}
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		slog.Error("session save failed", slog.Any("error", err), slog.String("candidate_id", sess.CandidateID))
	}
	return []domain.Activity{
		activity(msgWelcome),
		activity(fmt.Sprintf(msgSelectJD, strings.Join(sess.AvailableJDs, ", "))),
	}, nil
}

// stagePrompt re-renders the ask for the session's current stage. Used when
// a participant re-joins mid-interview.
func (s *InterviewService) stagePrompt(sess *domain.Session) string {
	switch sess.Stage {
	case domain.StageGreeting, domain.StageJDSelection:
		return fmt.Sprintf(msgSelectJD, strings.Join(sess.AvailableJDs, ", "))
	case domain.StageNamePrompt:
		return fmt.Sprintf(msgAskName, roleName(sess.JobDescriptionID))
	case domain.StagePreScreen:
		return fmt.Sprintf(msgPreScreen, sess.CandidateName)
	case domain.StageJDQuestions:
		if n := len(sess.History); n > 0 && sess.History[n-1].Speaker == domain.SpeakerInterviewer {
			return sess.History[n-1].Text
		}
		return fmt.Sprintf(msgPreScreen, sess.CandidateName)
	case domain.StageClosing:
		return fmt.Sprintf(msgClosing, sess.CandidateName)
	default:
		return msgAlreadyDone
	}
}

func (s *InterviewService) handleJDSelection(ctx domain.Context, sess *domain.Session, text string) ([]domain.Activity, error) {
	id, ok := s.AI.ResolveSelection(ctx, text, sess.AvailableJDs)
	if !ok {
		// Stage unchanged; the re-prompt lists every selectable option.
		return []domain.Activity{activity(fmt.Sprintf(msgSelectJDRetry, strings.Join(sess.AvailableJDs, ", ")))}, nil
	}
	content, err := s.JDs.GetContent(ctx, id)
	if err != nil {
		slog.Warn("job description unavailable, using fallback content",
			slog.String("jd_id", id), slog.Any("error", err))
		content = domain.FallbackJobDescription
	}
	if err := sess.SelectJD(id, content); err != nil {
		return nil, err
	}
	if err := sess.Advance(domain.StageNamePrompt); err != nil {
		return nil, err
	}
	return []domain.Activity{activity(fmt.Sprintf(msgAskName, roleName(id)))}, nil
}

func (s *InterviewService) handleNamePrompt(ctx domain.Context, sess *domain.Session, text string) ([]domain.Activity, error) {
	name, ok := s.AI.ExtractName(ctx, text)
	if !ok {
		return []domain.Activity{activity(msgAskNameRetry)}, nil
	}
	if err := sess.SetName(name); err != nil {
		return nil, err
	}
	if err := sess.Advance(domain.StagePreScreen); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(msgPreScreen, name)
	sess.AppendTurn(domain.SpeakerInterviewer, q)
	return []domain.Activity{activity(q)}, nil
}

func (s *InterviewService) handlePreScreen(ctx domain.Context, sess *domain.Session, text string) ([]domain.Activity, error) {
	sess.AppendTurn(domain.SpeakerCandidate, text)
	a := s.AI.AssessAnswer(ctx, domain.AssessmentInput{
		Answer:        text,
		JDExcerpt:     sess.JobDescriptionText,
		CandidateName: sess.CandidateName,
	})
	sess.RecordAssessment("pre_screen", a)
	if err := sess.Advance(domain.StageJDQuestions); err != nil {
		return nil, err
	}
	return []domain.Activity{s.askNextQuestion(ctx, sess)}, nil
}

func (s *InterviewService) handleJDQuestion(ctx domain.Context, sess *domain.Session, text string) ([]domain.Activity, error) {
	sess.AppendTurn(domain.SpeakerCandidate, text)
	label := fmt.Sprintf("question_%d", sess.AskedQuestions+1)
	a := s.AI.AssessAnswer(ctx, domain.AssessmentInput{
		Answer:        text,
		JDExcerpt:     sess.JobDescriptionText,
		CandidateName: sess.CandidateName,
	})
	sess.RecordAssessment(label, a)
	// A degraded analysis still consumes one question slot; the counter
	// tracks answered questions, not successful assessments.
	sess.AskedQuestions++

	if sess.AskedQuestions < sess.MaxQuestions {
		return []domain.Activity{s.askNextQuestion(ctx, sess)}, nil
	}
	if err := sess.Advance(domain.StageClosing); err != nil {
		return nil, err
	}
	return []domain.Activity{activity(fmt.Sprintf(msgClosing, sess.CandidateName))}, nil
}

// askNextQuestion generates, records, and renders dynamic question number
// AskedQuestions+1.
func (s *InterviewService) askNextQuestion(ctx domain.Context, sess *domain.Session) domain.Activity {
	q := s.AI.GenerateQuestion(ctx, domain.QuestionInput{
		JDText:        sess.JobDescriptionText,
		CandidateName: sess.CandidateName,
		History:       sess.History,
		Ordinal:       sess.AskedQuestions + 1,
	})
	sess.AppendTurn(domain.SpeakerInterviewer, q)
	return activity(q)
}

// finalize aggregates all assessments into the closing summary, publishes the
// completion report, and destroys the session. The next contact from the same
// identity starts a brand-new interview.
func (s *InterviewService) finalize(ctx domain.Context, sess *domain.Session) ([]domain.Activity, error) {
	report, metrics := BuildReport(sess)
	if err := sess.Advance(domain.StageComplete); err != nil {
		return nil, err
	}

	if s.Events != nil {
		r := domain.CompletionReport{
			CandidateID:        sess.CandidateID,
			CandidateName:      sess.CandidateName,
			JobDescriptionID:   sess.JobDescriptionID,
			AvgClarity:         metrics.AvgClarity,
			AvgRelevance:       metrics.AvgRelevance,
			QualificationScore: metrics.Qualification,
			Report:             report,
			CompletedAt:        time.Now().UTC(),
		}
		if err := s.Events.PublishCompleted(ctx, r); err != nil {
			slog.Error("completion publish failed", slog.Any("error", err), slog.String("candidate_id", sess.CandidateID))
		}
	}
	observability.ObserveCompletion(metrics.Score, metrics.Scored)
	observability.SessionEnded()

	if err := s.Sessions.Delete(ctx, sess.CandidateID); err != nil {
		slog.Error("session delete failed", slog.Any("error", err), slog.String("candidate_id", sess.CandidateID))
	}
	slog.Info("interview completed",
		slog.String("candidate_id", sess.CandidateID),
		slog.String("jd_id", sess.JobDescriptionID),
		slog.String("qualification_score", metrics.Qualification))
	return []domain.Activity{activity(report)}, nil
}

// RunCleanup periodically removes idle sessions until ctx is cancelled.
func (s *InterviewService) RunCleanup(ctx domain.Context, interval, idleTTL time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sessions.DeleteIdle(ctx, idleTTL)
			if err != nil && !errors.Is(err, ctx.Err()) {
				slog.Error("idle session cleanup failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				slog.Info("idle sessions removed", slog.Int("count", n))
			}
		}
	}
}

// roleName renders a JD identifier as a human-readable role name.
func roleName(id string) string {
	return strings.ReplaceAll(id, "-", " ")
}
