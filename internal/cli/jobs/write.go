package jobs

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/models"
	"github.com/trademate-dev/trademate/pkg/printer"
)

type jobFlags struct {
	title, description, status, scheduled, address, notes string
	clientID                                               int64
}

func (f *jobFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "Job title")
	fs.StringVar(&f.description, "description", "", "What needs doing")
	fs.StringVar(&f.status, "status", "", "Status (pending, in progress, completed, cancelled)")
	fs.StringVar(&f.scheduled, "scheduled", "", "Scheduled date, e.g. 2024-05-01T09:00")
	fs.StringVar(&f.address, "address", "", "Site address")
	fs.StringVar(&f.notes, "notes", "", "Free-form notes")
	fs.Int64Var(&f.clientID, "client-id", 0, "Client the job is for (0 detaches it)")
}

// apply copies the flags that were set onto j.
func (f *jobFlags) apply(ctx context.Context, rt *cmdutil.Runtime, fs *pflag.FlagSet, j *models.Job) error {
	if fs.Changed("title") {
		j.Title = f.title
	}
	if fs.Changed("description") {
		j.Description = f.description
	}
	if fs.Changed("address") {
		j.Address = f.address
	}
	if fs.Changed("notes") {
		j.Notes = f.notes
	}
	if fs.Changed("status") {
		s, err := models.ParseStatus(f.status)
		if err != nil {
			return err
		}
		j.Status = s
	}
	if fs.Changed("scheduled") {
		if f.scheduled == "" {
			j.ScheduledDate = nil
		} else {
			t, err := models.ParseLocalTime(f.scheduled)
			if err != nil {
				return err
			}
			j.ScheduledDate = t
		}
	}
	if fs.Changed("client-id") {
		j.Client = clientRef(ctx, rt, f.clientID)
	}
	return nil
}

// clientRef resolves the client so the optimistic row shows its name.
func clientRef(ctx context.Context, rt *cmdutil.Runtime, id int64) *models.ClientRef {
	if id == 0 {
		return nil
	}
	if c, found, _ := rt.App.Clients().Find(ctx, id); found {
		return models.ForClient(c)
	}
	return &models.ClientRef{ID: id}
}

func newCreateCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		flags  jobFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			j := models.Job{Status: models.StatusPending}
			if err := flags.apply(cmd.Context(), rt, cmd.Flags(), &j); err != nil {
				return err
			}
			created, err := rt.App.Jobs().Create(cmd.Context(), j)
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Err, fmt.Sprintf("Created %s", created.Ref()))
			return printJob(rt, output, created)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newUpdateCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		flags  jobFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a job",
		Long:  `Updates the fields given as flags and keeps the rest.`,
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
			if !found {
				if err != nil {
					return fmt.Errorf("failed to get job: %w", err)
				}
				return fmt.Errorf("job %d not found", id)
			}
			// the stored status is sent back as is, so it has to be one the
			// API accepts unless --status replaces it
			if !cmd.Flags().Changed("status") {
				s, err := models.ParseStatus(string(j.Status))
				if err != nil {
					return &models.ValidationError{
						Field:   "status",
						Message: fmt.Sprintf("%q on job %d is not a known status; pass --status", j.Status, id),
					}
				}
				j.Status = s
			}
			if err := flags.apply(cmd.Context(), rt, cmd.Flags(), &j); err != nil {
				return err
			}
			updated, err := rt.App.Jobs().Update(cmd.Context(), j)
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Err, fmt.Sprintf("Updated %s", updated.Ref()))
			return printJob(rt, output, updated)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func newDeleteCmd(rt *cmdutil.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			id, err := cmdutil.ParseID(args[0])
			if err != nil {
				return err
			}
			if _, err := rt.App.Jobs().Delete(cmd.Context(), id); err != nil {
				return err
			}
			printer.PrintSuccess(rt.Out, fmt.Sprintf("Deleted job %d", id))
			return nil
		},
	}
}
