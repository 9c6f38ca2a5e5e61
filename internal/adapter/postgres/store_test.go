package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/buildnotify/internal/adapter/postgres"
	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/domain"
	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/database"
)

// Compile-time interface check.
var _ database.Store = (*postgres.Store)(nil)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

// uniqueProject keeps test rows apart between runs.
func uniqueProject(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func TestStore_PreviousBuild(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	project := uniqueProject(t)

	if _, err := s.PreviousBuild(ctx, project, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty history, got %v", err)
	}

	for _, rec := range []*build.Record{
		{Project: project, Number: 1, Result: build.ResultSuccess},
		{Project: project, Number: 2, Result: build.ResultFailure, Changes: []build.Change{{Message: "oops", Author: "ana"}}},
	} {
		if err := s.SaveBuild(ctx, rec); err != nil {
			t.Fatalf("SaveBuild: %v", err)
		}
	}

	prev, err := s.PreviousBuild(ctx, project, 3)
	if err != nil {
		t.Fatalf("PreviousBuild: %v", err)
	}
	if prev.Number != 2 || prev.Result != build.ResultFailure {
		t.Fatalf("expected #2 FAILURE, got #%d %s", prev.Number, prev.Result)
	}
	if len(prev.Changes) != 1 || prev.Changes[0].Author != "ana" {
		t.Fatalf("unexpected changes %+v", prev.Changes)
	}

	prev, err = s.PreviousBuild(ctx, project, 2)
	if err != nil {
		t.Fatalf("PreviousBuild: %v", err)
	}
	if prev.Number != 1 {
		t.Fatalf("expected #1, got #%d", prev.Number)
	}
}

func TestStore_SaveBuildUpserts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	project := uniqueProject(t)

	_ = s.SaveBuild(ctx, &build.Record{Project: project, Number: 1, Result: build.ResultFailure})
	if err := s.SaveBuild(ctx, &build.Record{Project: project, Number: 1, Result: build.ResultSuccess}); err != nil {
		t.Fatalf("SaveBuild: %v", err)
	}

	prev, err := s.PreviousBuild(ctx, project, 2)
	if err != nil {
		t.Fatalf("PreviousBuild: %v", err)
	}
	if prev.Result != build.ResultSuccess {
		t.Fatalf("expected overwritten result SUCCESS, got %s", prev.Result)
	}
}

func TestStore_Outcomes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	project := uniqueProject(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	outcomes := []notification.Outcome{
		{Project: project, Build: 1, Channel: "chat", Status: build.StatusBroken, Kind: notification.OutcomeSent, Target: "-100", CreatedAt: now},
		{Project: project, Build: 2, Channel: "chat", Status: build.StatusStillBroken, Kind: notification.OutcomeFailed, Reason: "timeout", CreatedAt: now.Add(time.Second)},
	}
	for i := range outcomes {
		if err := s.RecordOutcome(ctx, &outcomes[i]); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
		if outcomes[i].ID == "" {
			t.Fatal("expected generated ID")
		}
	}

	got, err := s.ListOutcomes(ctx, project, 10)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}
	if got[0].Build != 2 || got[0].Kind != notification.OutcomeFailed || got[0].Reason != "timeout" {
		t.Fatalf("expected newest failed outcome first, got %+v", got[0])
	}
}
