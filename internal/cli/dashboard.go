package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/internal/cli/jobs"
	"github.com/trademate-dev/trademate/pkg/models"
	"github.com/trademate-dev/trademate/pkg/printer"
)

// NewDashboardCmd shows the job statistics and today's schedule.
func NewDashboardCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		output   string
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:         "dashboard",
		Short:       "Show job statistics and today's jobs",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "dashboard"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			if !watch {
				return showDashboard(cmd.Context(), rt, output, rt.App.Dashboard)
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return watchDashboard(cmd.Context(), rt, output, interval)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep showing the dashboard, refetching it on every --interval tick")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "How often --watch refetches and redraws")
	return cmd
}

type dashboardSource func(context.Context) (cache.Snapshot[models.DashboardStats], error)

// watchDashboard draws the cached view first and then a fresh network
// read on every tick, so each frame reflects the server at that moment.
func watchDashboard(ctx context.Context, rt *cmdutil.Runtime, output string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	source := dashboardSource(rt.App.Dashboard)
	for {
		if err := showDashboard(ctx, rt, output, source); err != nil {
			return err
		}
		source = rt.App.RefreshDashboard
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = fmt.Fprintln(rt.Out)
		}
	}
}

func showDashboard(ctx context.Context, rt *cmdutil.Runtime, output string, source dashboardSource) error {
	snap, err := source(ctx)
	if err != nil {
		if snap.IsZero() {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to get dashboard: %w", err)
		}
		rt.WarnStale(err)
	}
	p, err := rt.Printer(output)
	if err != nil {
		return err
	}
	// two tables, so the stats view writes its own
	return p.Print(snap.Data, func(*printer.TablePrinter) {
		printStats(rt, snap)
	})
}

func printStats(rt *cmdutil.Runtime, snap cache.Snapshot[models.DashboardStats]) {
	stats := snap.Data
	t := printer.NewTablePrinter(rt.Out)
	t.SetHeaders("Total", "Pending", "Completed", "Completion", "Today")
	t.AddRow(stats.TotalJobs, stats.PendingJobs, stats.CompletedJobs,
		fmt.Sprintf("%.0f%%", stats.CompletionRate()*100), len(stats.TodayJobs))
	_ = t.Render()

	_, _ = fmt.Fprintf(rt.Out, "\nToday's jobs (as of %s ago):\n", printer.FormatAge(rt.Now(), snap.FetchedAt))
	if len(stats.TodayJobs) == 0 {
		_, _ = fmt.Fprintln(rt.Out, "Nothing scheduled for today")
		return
	}
	jt := printer.NewTablePrinter(rt.Out)
	jobs.PrintTable(jt, stats.TodayJobs)
	_ = jt.Render()
}
