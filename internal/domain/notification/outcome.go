package notification

import (
	"time"

	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// OutcomeKind is the result of one dispatch.
type OutcomeKind string

const (
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeSent    OutcomeKind = "sent"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome records what happened to one build on one channel.
// Reason is set only for failures.
type Outcome struct {
	ID        string       `json:"id"`
	Project   string       `json:"project"`
	Build     int          `json:"build"`
	Channel   string       `json:"channel"`
	Status    build.Status `json:"status"`
	Kind      OutcomeKind  `json:"kind"`
	Target    string       `json:"target,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Failed reports whether the dispatch attempted a send that did not succeed.
func (o Outcome) Failed() bool { return o.Kind == OutcomeFailed }
