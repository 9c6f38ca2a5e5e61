package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Builds ---

func (s *Store) SaveBuild(ctx context.Context, rec *build.Record) error {
	changes, err := json.Marshal(orEmpty(rec.Changes))
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO builds (project, number, result, url, changes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (project, number) DO UPDATE
		 SET result = EXCLUDED.result, url = EXCLUDED.url, changes = EXCLUDED.changes`,
		rec.Project, rec.Number, string(rec.Result), rec.URL, changes)
	if err != nil {
		return fmt.Errorf("save build %s#%d: %w", rec.Project, rec.Number, err)
	}
	return nil
}

func (s *Store) PreviousBuild(ctx context.Context, project string, number int) (*build.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT project, number, result, url, changes
		 FROM builds WHERE project = $1 AND number < $2
		 ORDER BY number DESC LIMIT 1`, project, number)

	rec, err := scanBuild(row)
	if err != nil {
		return nil, notFoundWrap(err, "previous build %s#%d", project, number)
	}
	return rec, nil
}

func scanBuild(row scannable) (*build.Record, error) {
	var (
		rec     build.Record
		result  string
		changes []byte
	)
	if err := row.Scan(&rec.Project, &rec.Number, &result, &rec.URL, &changes); err != nil {
		return nil, err
	}
	rec.Result = build.Result(result)
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &rec.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	return &rec, nil
}

// --- Dispatch outcomes ---

func (s *Store) RecordOutcome(ctx context.Context, o *notification.Outcome) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dispatch_outcomes (id, project, build, channel, status, kind, target, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.Project, o.Build, o.Channel, string(o.Status), string(o.Kind), o.Target, o.Reason, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) ListOutcomes(ctx context.Context, project string, limit int) ([]notification.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, project, build, channel, status, kind, target, reason, created_at
		 FROM dispatch_outcomes WHERE project = $1
		 ORDER BY created_at DESC LIMIT $2`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes %s: %w", project, err)
	}
	defer rows.Close()

	var out []notification.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return orEmpty(out), rows.Err()
}

func scanOutcome(row scannable) (notification.Outcome, error) {
	var (
		o            notification.Outcome
		status, kind string
	)
	err := row.Scan(&o.ID, &o.Project, &o.Build, &o.Channel, &status, &kind, &o.Target, &o.Reason, &o.CreatedAt)
	o.Status = build.Status(status)
	o.Kind = notification.OutcomeKind(kind)
	return o, err
}
