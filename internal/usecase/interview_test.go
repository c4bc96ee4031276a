package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*domain.Session)}
}

func (f *fakeStore) GetOrCreate(_ context.Context, candidateID string, create func() *domain.Session) (*domain.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[candidateID]; ok {
		return s, false, nil
	}
	s := create()
	f.sessions[candidateID] = s
	return s, true, nil
}

func (f *fakeStore) Get(_ context.Context, candidateID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[candidateID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Save(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.CandidateID] = s
	return nil
}

func (f *fakeStore) Delete(_ context.Context, candidateID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, candidateID)
	f.deleted = append(f.deleted, candidateID)
	return nil
}

func (f *fakeStore) DeleteIdle(_ context.Context, ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-ttl)
	for id, s := range f.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

// fakeAI is a scripted Understanding gateway. Selection succeeds only for
// exact identifier matches, names are accepted unless the text is "mumble",
// and every answer yields the configured assessment.
type fakeAI struct {
	assessment    domain.Assessment
	questionCalls int
}

func (f *fakeAI) ResolveSelection(_ context.Context, text string, available []string) (string, bool) {
	for _, id := range available {
		if strings.EqualFold(strings.TrimSpace(text), id) {
			return id, true
		}
	}
	return "", false
}

func (f *fakeAI) ExtractName(_ context.Context, text string) (string, bool) {
	if strings.Contains(text, "mumble") {
		return "", false
	}
	return strings.TrimSpace(text), true
}

func (f *fakeAI) AssessAnswer(_ context.Context, _ domain.AssessmentInput) domain.Assessment {
	return f.assessment
}

func (f *fakeAI) GenerateQuestion(_ context.Context, in domain.QuestionInput) string {
	f.questionCalls++
	return strings.Repeat("q", 5) + " number " + strings.Repeat("#", in.Ordinal)
}

type fakeJDRepo struct {
	content map[string]string
}

func (f *fakeJDRepo) GetContent(_ context.Context, id string) (string, error) {
	c, ok := f.content[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeJDRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.content))
	for id := range f.content {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []domain.CompletionReport
}

func (f *fakeEvents) PublishCompleted(_ context.Context, r domain.CompletionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, r)
	return nil
}

func newTestService(ai *fakeAI, events *fakeEvents) (*InterviewService, *fakeStore) {
	store := newFakeStore()
	repo := &fakeJDRepo{content: map[string]string{
		"backend-engineer":  "Designs and runs Go services.",
		"frontend-engineer": "Builds web interfaces.",
	}}
	var pub domain.EventPublisher
	if events != nil {
		pub = events
	}
	svc := NewInterviewService(store, ai, repo, pub, 2, []string{"backend-engineer", "frontend-engineer"})
	return svc, store
}

func turnText(t *testing.T, acts []domain.Activity) string {
	t.Helper()
	require.NotEmpty(t, acts)
	var parts []string
	for _, a := range acts {
		parts = append(parts, a.Text)
	}
	return strings.Join(parts, "\n")
}

func TestHandleJoin_NewSessionGreets(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()

	acts, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Contains(t, acts[0].Text, "Welcome")
	assert.Contains(t, acts[1].Text, "backend-engineer, frontend-engineer")
	assert.Contains(t, acts[0].SpokenMarkup, "<speak")

	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageJDSelection, sess.Stage)
}

func TestHandleJoin_ExistingSessionRepromptsCurrentStage(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(&fakeAI{}, nil)
	ctx := context.Background()

	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)

	acts, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Contains(t, acts[0].Text, "Which role")
}

func TestHandleTurn_BlankCandidateID(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(&fakeAI{}, nil)
	_, err := svc.HandleTurn(context.Background(), "   ", "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestHandleTurn_FirstContactGreetsInsteadOfInterpreting(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()

	acts, err := svc.HandleTurn(ctx, "cand-1", "backend-engineer")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "Welcome")

	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	// The text arrived before any question was asked, so no JD was chosen.
	assert.Equal(t, domain.StageJDSelection, sess.Stage)
	assert.Empty(t, sess.JobDescriptionID)
}

func TestHandleTurn_EmptyInputLeavesSessionUntouched(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()
	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)

	before, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	stage := before.Stage
	histLen := len(before.History)

	acts, err := svc.HandleTurn(ctx, "cand-1", "   \x00  ")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "didn't receive any speech")

	after, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, stage, after.Stage)
	assert.Len(t, after.History, histLen)
}

func TestHandleTurn_SelectionRetryListsAllOptions(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()
	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)

	acts, err := svc.HandleTurn(ctx, "cand-1", "underwater basket weaving")
	require.NoError(t, err)
	text := turnText(t, acts)
	assert.Contains(t, text, "backend-engineer")
	assert.Contains(t, text, "frontend-engineer")

	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageJDSelection, sess.Stage)
}

func TestHandleTurn_NameRetryKeepsStage(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()
	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "cand-1", "backend-engineer")
	require.NoError(t, err)

	acts, err := svc.HandleTurn(ctx, "cand-1", "mumble mumble")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "didn't catch your name")

	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageNamePrompt, sess.Stage)
	assert.Empty(t, sess.CandidateName)
}

func TestHandleTurn_FullInterviewFlow(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{assessment: domain.Assessment{Clarity: intp(4), Relevance: intp(5), Summary: "Solid answer."}}
	events := &fakeEvents{}
	svc, store := newTestService(ai, events)
	ctx := context.Background()

	stages := []domain.Stage{}
	record := func() {
		if sess, err := store.Get(ctx, "cand-1"); err == nil {
			stages = append(stages, sess.Stage)
		}
	}

	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	record()

	// JD selection.
	acts, err := svc.HandleTurn(ctx, "cand-1", "Backend-Engineer")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "backend engineer role")
	record()

	// Name.
	acts, err = svc.HandleTurn(ctx, "cand-1", "Ada Lovelace")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "Nice to meet you, Ada Lovelace")
	record()

	// Pre-screen answer triggers the first dynamic question.
	acts, err = svc.HandleTurn(ctx, "cand-1", "I love reliable systems.")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "number #")
	record()

	// First dynamic answer; MaxQuestions is 2, so a second question follows.
	acts, err = svc.HandleTurn(ctx, "cand-1", "I built a payments service.")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "number ##")
	record()

	// Second dynamic answer exhausts the question budget.
	acts, err = svc.HandleTurn(ctx, "cand-1", "I mentored two juniors.")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "last question")
	record()

	// Any utterance in closing yields the summary and destroys the session.
	acts, err = svc.HandleTurn(ctx, "cand-1", "ok")
	require.NoError(t, err)
	report := turnText(t, acts)
	assert.Contains(t, report, "Screening summary for Ada Lovelace (backend engineer)")
	assert.Contains(t, report, "pre_screen")
	assert.Contains(t, report, "question_1")
	assert.Contains(t, report, "question_2")
	assert.Contains(t, report, "Average clarity: 4.0/5")
	assert.Contains(t, report, "Average relevance: 5.0/5")
	assert.Contains(t, report, "Qualification score: 90%")

	// Stages never moved backwards.
	for i := 1; i < len(stages); i++ {
		assert.GreaterOrEqual(t, int(stages[i]), int(stages[i-1]), "stage regressed at step %d: %v", i, stages)
	}

	// Completion was published once with the final metrics.
	require.Len(t, events.published, 1)
	assert.Equal(t, "cand-1", events.published[0].CandidateID)
	assert.Equal(t, "90", events.published[0].QualificationScore)

	// Session is gone; the next contact starts over.
	_, err = store.Get(ctx, "cand-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	acts, err = svc.HandleTurn(ctx, "cand-1", "hello again")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "Welcome")
}

func TestHandleTurn_DegradedAssessmentStillConsumesSlot(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{assessment: domain.DegradedAssessment()}
	svc, store := newTestService(ai, nil)
	ctx := context.Background()

	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "cand-1", "backend-engineer")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "cand-1", "Grace")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "cand-1", "pre-screen answer")
	require.NoError(t, err)

	_, err = svc.HandleTurn(ctx, "cand-1", "answer one")
	require.NoError(t, err)
	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.AskedQuestions)

	acts, err := svc.HandleTurn(ctx, "cand-1", "answer two")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "last question")

	acts, err = svc.HandleTurn(ctx, "cand-1", "done")
	require.NoError(t, err)
	report := turnText(t, acts)
	assert.Contains(t, report, "Analysis failed")
	assert.Contains(t, report, "Qualification score: not available")
}

func TestHandleTurn_MissingJDContentFallsBack(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	svc.JDs = &fakeJDRepo{content: map[string]string{}}
	ctx := context.Background()

	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "cand-1", "backend-engineer")
	require.NoError(t, err)

	sess, err := store.Get(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "backend-engineer", sess.JobDescriptionID)
	assert.Equal(t, domain.FallbackJobDescription, sess.JobDescriptionText)
	assert.Equal(t, domain.StageNamePrompt, sess.Stage)
}

type panicStore struct{ *fakeStore }

func (p panicStore) Save(context.Context, *domain.Session) error { panic("store wiring broken") }

func TestHandleTurn_PanicRecoversWithGenericNotice(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx := context.Background()
	_, err := svc.HandleJoin(ctx, "cand-1")
	require.NoError(t, err)

	svc.Sessions = panicStore{store}
	acts, err := svc.HandleTurn(ctx, "cand-1", "backend-engineer")
	require.NoError(t, err)
	assert.Contains(t, turnText(t, acts), "technical difficulties")
}

func TestRunCleanup_RemovesIdleSessions(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(&fakeAI{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.HandleJoin(ctx, "stale")
	require.NoError(t, err)
	store.mu.Lock()
	store.sessions["stale"].UpdatedAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svc.RunCleanup(ctx, 5*time.Millisecond, 30*time.Minute)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "stale")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	t.Parallel()
	km := keyedMutex{m: make(map[string]*lockEntry)}
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("same")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	km.mu.Lock()
	assert.Empty(t, km.m, "lock entries must be reclaimed")
	km.mu.Unlock()
}
