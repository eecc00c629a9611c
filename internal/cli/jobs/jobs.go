// Package jobs implements the jobs command group.
package jobs

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/models"
	"github.com/trademate-dev/trademate/pkg/printer"
)

// NewJobsCmd returns the jobs command group.
func NewJobsCmd(rt *cmdutil.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "jobs",
		Aliases:     []string{"job"},
		Short:       "Manage jobs",
		Long:        `List, schedule, update and delete jobs.`,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "jobs"},
	}
	cmd.AddCommand(
		newListCmd(rt),
		newShowCmd(rt),
		newCreateCmd(rt),
		newUpdateCmd(rt),
		newDeleteCmd(rt),
	)
	return cmd
}

func newListCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		search  string
		status  string
		output  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Long:  `Lists jobs, optionally filtered by title, client name or address and by status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			var want models.Status
			if status != "" {
				var err error
				if want, err = models.ParseStatus(status); err != nil {
					return err
				}
			}

			coll := rt.App.Jobs()
			if refresh {
				if _, err := coll.Refresh(cmd.Context()); err != nil {
					rt.WarnStale(err)
				}
			}
			jobs, err := coll.Search(cmd.Context(), search)
			if err != nil {
				if _, cached := coll.Peek(); !cached {
					return fmt.Errorf("failed to get jobs: %w", err)
				}
				rt.WarnStale(err)
			}
			if want != "" {
				jobs = slices.DeleteFunc(jobs, func(j models.Job) bool { return j.DisplayStatus() != want })
			}

			p, err := rt.Printer(output)
			if err != nil {
				return err
			}
			if len(jobs) == 0 && p.OutputType() != printer.OutputTypeJSON && p.OutputType() != printer.OutputTypeYAML {
				_, _ = fmt.Fprintln(rt.Out, "No jobs found")
				return nil
			}
			return p.Print(jobs, func(t *printer.TablePrinter) {
				PrintTable(t, jobs)
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show jobs whose title, client name or address contains this text")
	cmd.Flags().StringVar(&status, "status", "", "Only show jobs with this status")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, wide, json, yaml)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}

// PrintTable renders jobs as table rows. The dashboard reuses it.
func PrintTable(t *printer.TablePrinter, jobs []models.Job) {
	if t.Wide() {
		t.SetHeaders("Ref", "Title", "Client", "Status", "Scheduled", "Address", "Description")
	} else {
		t.SetHeaders("Ref", "Title", "Client", "Status", "Scheduled")
	}
	for _, j := range jobs {
		ref := j.Ref()
		if !j.Confirmed() {
			ref = printer.Pending(ref)
		}
		scheduled := "-"
		if j.ScheduledDate != nil {
			scheduled = printer.FormatDate(j.ScheduledDate.Time)
		}
		row := []any{
			ref,
			printer.TruncateString(j.Title, 40),
			printer.TruncateString(j.ClientName(), 30),
			printer.StatusBadge(j.DisplayStatus()),
			scheduled,
		}
		if t.Wide() {
			row = append(row,
				printer.TruncateString(printer.EmptyValueOrDefault(j.Address, "-"), 40),
				printer.TruncateString(printer.EmptyValueOrDefault(j.Description, "-"), 50),
			)
		}
		t.AddRow(row...)
	}
}

func newShowCmd(rt *cmdutil.Runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			id, err := cmdutil.ParseID(args[0])
			if err != nil {
				return err
			}
			j, found, err := rt.App.Jobs().Find(cmd.Context(), id)
			if err != nil {
				if !found {
					return fmt.Errorf("failed to get job: %w", err)
				}
				rt.WarnStale(err)
			}
			if !found {
				return fmt.Errorf("job %d not found", id)
			}
			return printJob(rt, output, j)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func printJob(rt *cmdutil.Runtime, output string, j models.Job) error {
	p, err := rt.Printer(output)
	if err != nil {
		return err
	}
	return p.Print(j, func(t *printer.TablePrinter) {
		t.SetHeaders("Property", "Value")
		t.AddRow("Ref", j.Ref())
		t.AddRow("Title", j.Title)
		t.AddRow("Status", printer.StatusBadge(j.DisplayStatus()))
		t.AddRow("Client", j.ClientName())
		if j.ScheduledDate != nil {
			t.AddRow("Scheduled", printer.FormatDate(j.ScheduledDate.Time))
		}
		t.AddRow("Address", printer.EmptyValueOrDefault(j.Address, "-"))
		t.AddRow("Description", printer.EmptyValueOrDefault(j.Description, "-"))
		t.AddRow("Notes", printer.EmptyValueOrDefault(j.Notes, "-"))
	})
}
