package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

// notAvailable is rendered for every final metric when no answer produced a
// scorable assessment; the aggregator never divides by zero.
const notAvailable = "not available"

// SummaryMetrics carries the reduced end-of-interview numbers in both
// rendered and raw form.
type SummaryMetrics struct {
	AvgClarity    string
	AvgRelevance  string
	Qualification string
	// Score is the raw 0-100 value; Scored is false when no assessment
	// carried scores and Score is meaningless.
	Score  float64
	Scored bool
}

// BuildReport reduces all recorded per-turn assessments, in ordinal order,
// into the human-readable closing summary and the final metrics.
//
// An assessment counts toward the averages only when both scores are
// present; degraded assessments contribute their report line but no numbers.
func BuildReport(sess *domain.Session) (string, SummaryMetrics) {
	var (
		sumClarity   int
		sumRelevance int
		validCount   int
		lines        []string
	)
	for _, label := range sess.AssessmentOrder {
		a, ok := sess.Assessments[label]
		if !ok {
			continue
		}
		if a.Clarity != nil && a.Relevance != nil {
			sumClarity += *a.Clarity
			sumRelevance += *a.Relevance
			validCount++
		}
		lines = append(lines, reportLine(label, a))
	}

	m := SummaryMetrics{
		AvgClarity:    notAvailable,
		AvgRelevance:  notAvailable,
		Qualification: notAvailable,
	}
	if validCount > 0 {
		m.AvgClarity = fmt.Sprintf("%.1f", float64(sumClarity)/float64(validCount))
		m.AvgRelevance = fmt.Sprintf("%.1f", float64(sumRelevance)/float64(validCount))
		// Mean of both axes normalized to a 0-100 scale.
		m.Score = math.Round(float64(sumClarity+sumRelevance) / float64(validCount*2*5) * 100)
		m.Scored = true
		m.Qualification = fmt.Sprintf("%d", int(m.Score))
	}

	name := sess.CandidateName
	if name == "" {
		name = "candidate"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Screening summary for %s (%s):\n", name, roleName(sess.JobDescriptionID))
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Average clarity: %s\n", suffixed(m.AvgClarity, "/5"))
	fmt.Fprintf(&b, "Average relevance: %s\n", suffixed(m.AvgRelevance, "/5"))
	fmt.Fprintf(&b, "Qualification score: %s", suffixed(m.Qualification, "%"))
	return b.String(), m
}

func reportLine(label string, a domain.Assessment) string {
	clarity := "N/A"
	if a.Clarity != nil {
		clarity = fmt.Sprintf("%d", *a.Clarity)
	}
	relevance := "N/A"
	if a.Relevance != nil {
		relevance = fmt.Sprintf("%d", *a.Relevance)
	}
	entities := "none"
	if len(a.Entities) > 0 {
		parts := make([]string, 0, len(a.Entities))
		for _, e := range a.Entities {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Type, e.Value))
		}
		entities = strings.Join(parts, "; ")
	}
	return fmt.Sprintf("- %s: %s (clarity %s, relevance %s) [entities: %s]", label, a.Summary, clarity, relevance, entities)
}

// suffixed appends a unit to a rendered metric unless it is "not available".
func suffixed(v, unit string) string {
	if v == notAvailable {
		return v
	}
	return v + unit
}
