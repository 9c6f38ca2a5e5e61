// Package database defines the persistence port for build history and
// dispatch outcomes.
package database

import (
	"context"

	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
)

// Store persists finished builds and the outcome of every dispatch.
type Store interface {
	// SaveBuild records a finished build. Saving the same project and
	// number again overwrites the stored result.
	SaveBuild(ctx context.Context, rec *build.Record) error

	// PreviousBuild returns the most recent build of project numbered below
	// number, or domain.ErrNotFound when there is none.
	PreviousBuild(ctx context.Context, project string, number int) (*build.Record, error)

	// RecordOutcome stores one dispatch outcome.
	RecordOutcome(ctx context.Context, o *notification.Outcome) error

	// ListOutcomes returns the newest outcomes for project, newest first.
	ListOutcomes(ctx context.Context, project string, limit int) ([]notification.Outcome, error)
}
