package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

func TestNewSession_Defaults(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", []string{"backend-engineer", "data-analyst"}, 3)
	assert.Equal(t, domain.StageGreeting, s.Stage)
	assert.Equal(t, "cand-1", s.CandidateID)
	assert.Equal(t, 3, s.MaxQuestions)
	assert.Zero(t, s.AskedQuestions)
	assert.Len(t, s.AvailableJDs, 2)
	assert.NotNil(t, s.Assessments)
}

func TestSession_Advance_ForwardOnly(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	require.NoError(t, s.Advance(domain.StageJDSelection))
	require.NoError(t, s.Advance(domain.StageNamePrompt))
	// Backward transition must be rejected and leave the stage untouched.
	err := s.Advance(domain.StageJDSelection)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.StageNamePrompt, s.Stage)
}

func TestSession_Advance_SkippingForwardAllowed(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	require.NoError(t, s.Advance(domain.StageClosing))
	assert.Equal(t, domain.StageClosing, s.Stage)
}

func TestSession_Advance_CompleteIsTerminal(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	require.NoError(t, s.Advance(domain.StageComplete))
	err := s.Advance(domain.StageComplete)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestSession_SetName_WriteOnce(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	require.NoError(t, s.SetName("Ada Lovelace"))
	err := s.SetName("Grace Hopper")
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "Ada Lovelace", s.CandidateName)
}

func TestSession_SelectJD_WriteOnce(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", []string{"backend-engineer"}, 3)
	require.NoError(t, s.SelectJD("backend-engineer", "JD text"))
	err := s.SelectJD("data-analyst", "other")
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "backend-engineer", s.JobDescriptionID)
	assert.Equal(t, "JD text", s.JobDescriptionText)
}

func TestSession_RecordAssessment_PreservesOrder(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	s.RecordAssessment("pre_screen", domain.Assessment{Summary: "a"})
	s.RecordAssessment("question_1", domain.Assessment{Summary: "b"})
	s.RecordAssessment("question_2", domain.Assessment{Summary: "c"})
	// Re-recording an existing label must not duplicate its order slot.
	s.RecordAssessment("question_1", domain.Assessment{Summary: "b2"})
	assert.Equal(t, []string{"pre_screen", "question_1", "question_2"}, s.AssessmentOrder)
	assert.Equal(t, "b2", s.Assessments["question_1"].Summary)
}

func TestSession_RecentHistory_Window(t *testing.T) {
	t.Parallel()
	s := domain.NewSession("sid-1", "cand-1", nil, 3)
	s.AppendTurn(domain.SpeakerInterviewer, "q1")
	s.AppendTurn(domain.SpeakerCandidate, "a1")
	s.AppendTurn(domain.SpeakerInterviewer, "q2")
	s.AppendTurn(domain.SpeakerCandidate, "a2")

	win := s.RecentHistory(2)
	require.Len(t, win, 2)
	assert.Equal(t, "q2", win[0].Text)
	assert.Equal(t, "a2", win[1].Text)

	assert.Len(t, s.RecentHistory(0), 4)
	assert.Len(t, s.RecentHistory(10), 4)
}

func TestStage_StringAndParse(t *testing.T) {
	t.Parallel()
	for _, st := range []domain.Stage{
		domain.StageGreeting, domain.StageJDSelection, domain.StageNamePrompt,
		domain.StagePreScreen, domain.StageJDQuestions, domain.StageClosing,
		domain.StageComplete,
	} {
		parsed, err := domain.ParseStage(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
		assert.True(t, st.Valid())
	}
	_, err := domain.ParseStage("warmup")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.False(t, domain.Stage(42).Valid())
}

func TestDegradedAssessment(t *testing.T) {
	t.Parallel()
	a := domain.DegradedAssessment()
	assert.Equal(t, "Analysis failed", a.Summary)
	assert.Empty(t, a.Entities)
	assert.NotNil(t, a.Entities)
	assert.Nil(t, a.Clarity)
	assert.Nil(t, a.Relevance)
}
