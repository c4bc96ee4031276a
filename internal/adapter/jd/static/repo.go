// Package static provides a YAML-seeded in-memory job description store,
// the default document store when no database is configured.
package static

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

type seedFile struct {
	JobDescriptions []seedEntry `yaml:"job_descriptions"`
}

type seedEntry struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// Repo holds JD content in memory, keyed by id. Content is read-only after
// construction, so no locking is needed.
type Repo struct {
	ids     []string
	content map[string]string
}

// New builds a Repo for the configured ids. Every id gets generic placeholder
// content so a bare deployment still interviews sensibly; entries from the
// optional YAML seed file override it.
func New(ids []string, seedPath string) (*Repo, error) {
	r := &Repo{
		ids:     append([]string(nil), ids...),
		content: make(map[string]string, len(ids)),
	}
	for _, id := range ids {
		r.content[id] = placeholderContent(id)
	}
	if seedPath != "" {
		if err := r.loadSeed(seedPath); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Repo) loadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=jd.seed: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("op=jd.seed: %w", err)
	}
	for _, e := range doc.JobDescriptions {
		id := strings.TrimSpace(e.ID)
		if id == "" || strings.TrimSpace(e.Content) == "" {
			continue
		}
		if _, known := r.content[id]; !known {
			r.ids = append(r.ids, id)
		}
		r.content[id] = strings.TrimSpace(e.Content)
	}
	return nil
}

func placeholderContent(id string) string {
	role := strings.ReplaceAll(id, "-", " ")
	return fmt.Sprintf("We are hiring a %s. The role requires solid hands-on "+
		"experience, clear communication, and the ability to collaborate "+
		"across teams on production systems.", role)
}

// GetContent returns the JD text for an id.
func (r *Repo) GetContent(_ domain.Context, id string) (string, error) {
	c, ok := r.content[id]
	if !ok {
		return "", fmt.Errorf("op=jd.get: %w: %s", domain.ErrNotFound, id)
	}
	return c, nil
}

// ListIDs returns the selectable JD ids in configuration order.
func (r *Repo) ListIDs(_ domain.Context) ([]string, error) {
	return append([]string(nil), r.ids...), nil
}
