package messagequeue

import (
	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// ChangePayload is one source change in a finished build.
type ChangePayload struct {
	Message string `json:"message"`
	Author  string `json:"author"`
}

// BuildFinishedPayload is published on SubjectBuildFinished and accepted
// by the HTTP intake. PreviousResult is optional; without it the previous
// build is looked up from history.
type BuildFinishedPayload struct {
	Project        string            `json:"project" validate:"required,max=256,no_control"`
	Number         int               `json:"number" validate:"required,gt=0"`
	Result         string            `json:"result" validate:"required,build_result"`
	PreviousResult string            `json:"previous_result,omitempty" validate:"omitempty,build_result"`
	URL            string            `json:"url" validate:"max=2048"`
	Changes        []ChangePayload   `json:"changes,omitempty" validate:"dive"`
	Env            map[string]string `json:"env,omitempty"`
	Channels       []string          `json:"channels,omitempty"` // restrict to these channel names
}

// Record converts the payload to a build record. The previous build link
// is set only when PreviousResult is present. Validate the payload first.
func (p *BuildFinishedPayload) Record() *build.Record {
	result, _ := build.ParseResult(p.Result)
	rec := &build.Record{
		Number:  p.Number,
		Result:  result,
		Project: p.Project,
		URL:     p.URL,
		Env:     p.Env,
	}
	for _, c := range p.Changes {
		rec.Changes = append(rec.Changes, build.Change{Message: c.Message, Author: c.Author})
	}
	if prev, _ := build.ParseResult(p.PreviousResult); prev != "" {
		rec.Previous = &build.Record{Number: p.Number - 1, Result: prev, Project: p.Project}
	}
	return rec
}
