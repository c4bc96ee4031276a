package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

// ChatClient is one round trip to the understanding backend.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Sentinels the backend is instructed to answer with when nothing matched.
const (
	selectionNoneSentinel = "NONE"
	nameNoneSentinel      = "UNKNOWN"
)

// minUsableQuestionLen rejects degenerate generated questions ("Go on?", a
// bare punctuation mark) in favor of the fixed fallback.
const minUsableQuestionLen = 10

// jdExcerptLimit bounds how much JD text is sent with each assessment call.
const jdExcerptLimit = 600

// Gateway implements domain.Understanding over a ChatClient. Per the error
// design, none of its methods surface errors: each backend failure degrades
// to the task-specific fallback and the conversation continues.
type Gateway struct {
	client      ChatClient
	timeout     time.Duration
	window      int
	tokenBudget int
	cleaner     *ResponseCleaner

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewGateway constructs a Gateway. window caps history lines per question
// call; tokenBudget additionally bounds those lines by token count.
func NewGateway(client ChatClient, timeout time.Duration, window, tokenBudget int) *Gateway {
	return &Gateway{
		client:      client,
		timeout:     timeout,
		window:      window,
		tokenBudget: tokenBudget,
		cleaner:     NewResponseCleaner(),
	}
}

func (g *Gateway) complete(ctx context.Context, task, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	start := time.Now()
	out, err := g.client.Complete(ctx, system, user)
	if err != nil {
		observability.ObserveAICall(task, "fallback", time.Since(start))
		return "", fmt.Errorf("op=ai.%s: %w", task, err)
	}
	observability.ObserveAICall(task, "ok", time.Since(start))
	return strings.TrimSpace(out), nil
}

// ResolveSelection asks the backend to map the utterance onto exactly one of
// the valid identifiers. A returned value outside the valid set is treated as
// failure, never accepted.
func (g *Gateway) ResolveSelection(ctx context.Context, utterance string, valid []string) (string, bool) {
	system := "You match a candidate's reply to exactly one identifier from a fixed list. " +
		"Answer with the identifier only, no punctuation or explanation. " +
		"If none of the identifiers match, answer " + selectionNoneSentinel + "."
	user := fmt.Sprintf("Valid identifiers:\n%s\n\nCandidate said: %q", strings.Join(valid, "\n"), utterance)

	out, err := g.complete(ctx, "selection", system, user)
	if err != nil {
		slog.Warn("selection resolution failed", slog.Any("error", err))
		return "", false
	}
	answer := strings.Trim(out, "\"'` .")
	if strings.EqualFold(answer, selectionNoneSentinel) {
		return "", false
	}
	for _, id := range valid {
		if strings.EqualFold(answer, id) {
			return id, true
		}
	}
	slog.Warn("selection outside valid set rejected", slog.String("answer", answer))
	return "", false
}

// ExtractName pulls the candidate's name from an utterance. Only the sentinel
// check is case-normalized; the name keeps the candidate's original casing.
func (g *Gateway) ExtractName(ctx context.Context, utterance string) (string, bool) {
	system := "Extract the person's name from the message. " +
		"Answer with the name only. If no name is present, answer " + nameNoneSentinel + "."
	out, err := g.complete(ctx, "name", system, fmt.Sprintf("Message: %q", utterance))
	if err != nil {
		slog.Warn("name extraction failed", slog.Any("error", err))
		return "", false
	}
	name := strings.Trim(out, "\"'` ")
	if name == "" || strings.EqualFold(name, nameNoneSentinel) {
		return "", false
	}
	return name, true
}

// assessmentResponse mirrors the JSON shape the backend is instructed to
// return for structured assessments. Scores arrive as numbers of unknown
// integer-ness, so they are decoded as floats and validated afterwards.
type assessmentResponse struct {
	ClarityScore      *float64 `json:"ClarityScore"`
	RelevanceScore    *float64 `json:"RelevanceScore"`
	Summary           string   `json:"Summary"`
	ExtractedEntities []struct {
		Type  string `json:"Type"`
		Value string `json:"Value"`
	} `json:"ExtractedEntities"`
}

// AssessAnswer runs the structured per-turn assessment. Malformed or
// off-contract output is captured as a degraded assessment rather than
// propagating an error to the candidate-facing flow.
func (g *Gateway) AssessAnswer(ctx context.Context, in domain.AssessmentInput) domain.Assessment {
	system := "You are screening a job candidate. Assess one interview answer against the job description. " +
		"Respond with a JSON object only, shaped exactly as: " +
		`{"ClarityScore": 1-5, "RelevanceScore": 1-5, "Summary": "one sentence", ` +
		`"ExtractedEntities": [{"Type": "skill|company|role|technology|other", "Value": "text"}]}`
	jd := in.JDExcerpt
	if len(jd) > jdExcerptLimit {
		jd = jd[:jdExcerptLimit]
	}
	user := fmt.Sprintf("Job description excerpt:\n%s\n\nCandidate: %s\nAnswer: %q", jd, in.CandidateName, in.Answer)

	out, err := g.complete(ctx, "assessment", system, user)
	if err != nil {
		slog.Warn("assessment call failed, recording degraded assessment", slog.Any("error", err))
		return domain.DegradedAssessment()
	}
	return g.parseAssessment(out)
}

// parseAssessment is the fallible typed parse of an assessment payload.
func (g *Gateway) parseAssessment(raw string) domain.Assessment {
	cleaned := g.cleaner.CleanJSONResponse(raw)
	var resp assessmentResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		slog.Warn("assessment payload not parseable", slog.Any("error", err), slog.String("payload", truncate(raw, 200)))
		return domain.DegradedAssessment()
	}
	if strings.TrimSpace(resp.Summary) == "" {
		slog.Warn("assessment payload missing summary", slog.String("payload", truncate(cleaned, 200)))
		return domain.DegradedAssessment()
	}
	a := domain.Assessment{
		Summary:  strings.TrimSpace(resp.Summary),
		Entities: []domain.Entity{},
	}
	a.Clarity = scoreInRange(resp.ClarityScore)
	a.Relevance = scoreInRange(resp.RelevanceScore)
	for _, e := range resp.ExtractedEntities {
		v := strings.TrimSpace(e.Value)
		if v == "" {
			continue
		}
		typ := strings.TrimSpace(e.Type)
		if typ == "" {
			typ = "other"
		}
		a.Entities = append(a.Entities, domain.Entity{Type: typ, Value: v})
	}
	return a
}

// scoreInRange validates a backend score into [1,5]; anything else is absent.
func scoreInRange(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	if n < 1 || n > 5 {
		return nil
	}
	return &n
}

// GenerateQuestion produces one JD-grounded follow-up question. A returned
// question shorter than the minimum usable length is replaced by a fixed
// fallback referencing the ordinal.
func (g *Gateway) GenerateQuestion(ctx context.Context, in domain.QuestionInput) string {
	system := "You are conducting an initial screening interview. " +
		"Ask exactly one concise follow-up question grounded in the job description and the conversation so far. " +
		"Do not repeat earlier questions. Answer with the question text only."

	var b strings.Builder
	fmt.Fprintf(&b, "Job description:\n%s\n\nCandidate: %s\nThis is follow-up question %d.\n", in.JDText, in.CandidateName, in.Ordinal)
	if lines := g.boundedHistory(in.History); len(lines) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, t := range lines {
			fmt.Fprintf(&b, "%s: %s\n", t.Speaker, t.Text)
		}
	}

	out, err := g.complete(ctx, "question", system, b.String())
	if err != nil {
		slog.Warn("question generation failed, using fallback", slog.Any("error", err), slog.Int("ordinal", in.Ordinal))
		return fallbackQuestion(in.Ordinal)
	}
	q := strings.Trim(out, "\"` ")
	if len(q) < minUsableQuestionLen {
		slog.Warn("generated question too short, using fallback", slog.String("question", q), slog.Int("ordinal", in.Ordinal))
		return fallbackQuestion(in.Ordinal)
	}
	return q
}

func fallbackQuestion(ordinal int) string {
	return fmt.Sprintf("Question %d: could you walk me through a recent project where you used skills relevant to this role?", ordinal)
}

// boundedHistory trims the recent-history window so its token count stays
// within the configured budget, dropping oldest lines first.
func (g *Gateway) boundedHistory(history []domain.TurnRecord) []domain.TurnRecord {
	if len(history) > g.window && g.window > 0 {
		history = history[len(history)-g.window:]
	}
	if g.tokenBudget <= 0 {
		return history
	}
	enc := g.encoding()
	if enc == nil {
		return history
	}
	total := 0
	cut := 0
	// Walk newest-first so the freshest turns survive the budget.
	for i := len(history) - 1; i >= 0; i-- {
		total += len(enc.Encode(history[i].Text, nil, nil))
		if total > g.tokenBudget {
			cut = i + 1
			break
		}
	}
	return history[cut:]
}

func (g *Gateway) encoding() *tiktoken.Tiktoken {
	g.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("tiktoken encoding unavailable, history window is line-bounded only", slog.Any("error", err))
			return
		}
		g.enc = enc
	})
	return g.enc
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
