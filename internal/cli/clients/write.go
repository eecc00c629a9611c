package clients

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/models"
	"github.com/trademate-dev/trademate/pkg/printer"
)

type clientFlags struct {
	name, email, phone, address, notes string
}

func (f *clientFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "Client name")
	fs.StringVar(&f.email, "email", "", "Email address")
	fs.StringVar(&f.phone, "phone", "", "Phone number")
	fs.StringVar(&f.address, "address", "", "Street address")
	fs.StringVar(&f.notes, "notes", "", "Free-form notes")
}

// apply copies the flags that were set onto c.
func (f *clientFlags) apply(fs *pflag.FlagSet, c *models.Client) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("name", &c.Name, f.name)
	set("email", &c.Email, f.email)
	set("phone", &c.Phone, f.phone)
	set("address", &c.Address, f.address)
	set("notes", &c.Notes, f.notes)
}

func newCreateCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		flags  clientFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			var c models.Client
			flags.apply(cmd.Flags(), &c)
			created, err := rt.App.Clients().Create(cmd.Context(), c)
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Err, fmt.Sprintf("Created client %d (%s)", created.ID, created.Name))
			return printClient(rt, output, created)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpdateCmd(rt *cmdutil.Runtime) *cobra.Command {
	var (
		flags  clientFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a client",
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
			c, found, err := rt.App.Clients().Find(cmd.Context(), id)
			if !found {
				if err != nil {
					return fmt.Errorf("failed to get client: %w", err)
				}
				return fmt.Errorf("client %d not found", id)
			}
			flags.apply(cmd.Flags(), &c)
			updated, err := rt.App.Clients().Update(cmd.Context(), c)
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Err, fmt.Sprintf("Updated client %d", updated.ID))
			return printClient(rt, output, updated)
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
		Short:   "Delete a client",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			id, err := cmdutil.ParseID(args[0])
			if err != nil {
				return err
			}
			if _, err := rt.App.Clients().Delete(cmd.Context(), id); err != nil {
				return err
			}
			printer.PrintSuccess(rt.Out, fmt.Sprintf("Deleted client %d", id))
			return nil
		},
	}
}
