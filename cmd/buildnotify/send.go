package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Strob0t/buildnotify/internal/adapter/postgres"
	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/database"
	"github.com/Strob0t/buildnotify/internal/port/messagequeue"
	"github.com/Strob0t/buildnotify/internal/resilience"
	"github.com/Strob0t/buildnotify/internal/service"
)

type sendOptions struct {
	project  string
	number   int
	result   string
	previous string
	url      string
	changes  []string
	env      map[string]string
	channels []string
	history  bool
}

func newSendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch one finished build to the configured channels",
		Long: `send is meant for a CI post-build step. It exits non-zero only for bad
input or configuration; delivery failures are printed but never fail the
build.`,
		Example: `  buildnotify send --project core --number 12 --result FAILURE --previous SUCCESS \
    --url job/core/12/ --change "fix flaky test|ana" --env BRANCH=main`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, flush, err := setup(root)
			if err != nil {
				return err
			}
			defer flush()
			return runSend(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.project, "project", "", "project (job) name")
	f.IntVar(&opts.number, "number", 0, "build number")
	f.StringVar(&opts.result, "result", "", "build result: SUCCESS, UNSTABLE, FAILURE, ABORTED or NOT_BUILT")
	f.StringVar(&opts.previous, "previous", "", "result of the previous build, empty if there is none")
	f.StringVar(&opts.url, "url", "", "build URL relative to notify.base_url")
	f.StringArrayVar(&opts.changes, "change", nil, `source change as "message|author", repeatable`)
	f.StringToStringVar(&opts.env, "env", nil, "build environment used by extra message substitution")
	f.StringSliceVar(&opts.channels, "channel", nil, "only dispatch to these channels")
	f.BoolVar(&opts.history, "history", false, "look up the previous build in Postgres when --previous is not set, and record the build")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

// payload converts the flags into a build event.
func (o *sendOptions) payload() *messagequeue.BuildFinishedPayload {
	p := &messagequeue.BuildFinishedPayload{
		Project:        o.project,
		Number:         o.number,
		Result:         o.result,
		PreviousResult: o.previous,
		URL:            o.url,
		Env:            o.env,
		Channels:       o.channels,
	}
	for _, c := range o.changes {
		msg, author, _ := strings.Cut(c, "|")
		p.Changes = append(p.Changes, messagequeue.ChangePayload{
			Message: strings.TrimSpace(msg),
			Author:  strings.TrimSpace(author),
		})
	}
	return p
}

func runSend(ctx context.Context, out io.Writer, cfg *config.Config, opts *sendOptions) error {
	p := opts.payload()
	if err := messagequeue.ValidatePayload(p); err != nil {
		return err
	}

	channels, err := service.BuildChannels(cfg.Channels)
	if err != nil {
		return err
	}

	var store database.Store
	if opts.history {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
	}

	dispatcher := service.NewDispatcher(notification.Composer{
		BaseURL: cfg.Notify.BaseURL,
		Texts:   cfg.Notify.Texts,
	}, resilience.NewSet(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout), nil)

	notifySvc := service.NewNotificationService(dispatcher, channels)
	if store != nil {
		notifySvc.SetStore(store)
	}

	outcomes, err := service.NewBuildEventService(notifySvc, store).Handle(ctx, p)
	if err != nil {
		return err
	}

	printOutcomes(out, outcomes)
	for _, o := range outcomes {
		if o.Failed() {
			slog.Warn("notification not delivered", "channel", o.Channel, "reason", o.Reason)
		}
	}
	return nil
}

func printOutcomes(out io.Writer, outcomes []notification.Outcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHANNEL\tSTATUS\tOUTCOME\tTARGET\tREASON")
	for _, o := range outcomes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.Channel, o.Status, o.Kind, o.Target, o.Reason)
	}
	_ = w.Flush()
}
