package notification

import (
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// Texts holds optional display overrides. A blank entry falls back to the
// built-in text.
type Texts struct {
	Labels  map[build.Status]string `yaml:"labels" json:"labels,omitempty"`
	Results map[build.Result]string `yaml:"results" json:"results,omitempty"`
}

// Label returns the display label for s.
func (t Texts) Label(s build.Status) string {
	if v := strings.TrimSpace(t.Labels[s]); v != "" {
		return v
	}
	return s.Label()
}

// ResultText returns the display text for r.
func (t Texts) ResultText(r build.Result) string {
	if v := strings.TrimSpace(t.Results[r]); v != "" {
		return v
	}
	return string(r)
}
