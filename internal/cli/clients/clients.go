// Package clients implements the clients command group.
package clients

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/models"
	"github.com/trademate-dev/trademate/pkg/printer"
)

// NewClientsCmd returns the clients command group.
func NewClientsCmd(rt *cmdutil.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "clients",
		Aliases:     []string{"client"},
		Short:       "Manage clients",
		Long:        `List, create, update and delete the clients you do work for.`,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "clients"},
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
		output  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Long:  `Lists clients, optionally filtered by name, email or phone.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			coll := rt.App.Clients()
			if refresh {
				if _, err := coll.Refresh(cmd.Context()); err != nil {
					rt.WarnStale(err)
				}
			}
			clients, err := coll.Search(cmd.Context(), search)
			if err != nil {
				if _, cached := coll.Peek(); !cached {
					return fmt.Errorf("failed to get clients: %w", err)
				}
				rt.WarnStale(err)
			}

			p, err := rt.Printer(output)
			if err != nil {
				return err
			}
			if len(clients) == 0 && p.OutputType() != printer.OutputTypeJSON && p.OutputType() != printer.OutputTypeYAML {
				if search != "" {
					_, _ = fmt.Fprintf(rt.Out, "No clients match %q\n", search)
				} else {
					_, _ = fmt.Fprintln(rt.Out, "No clients yet")
				}
				return nil
			}
			return p.Print(clients, func(t *printer.TablePrinter) {
				printClientsTable(t, clients)
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show clients whose name, email or phone contains this text")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, wide, json, yaml)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}

func printClientsTable(t *printer.TablePrinter, clients []models.Client) {
	if t.Wide() {
		t.SetHeaders("ID", "", "Name", "Email", "Phone", "Address", "Notes")
	} else {
		t.SetHeaders("ID", "", "Name", "Email", "Phone")
	}
	for _, c := range clients {
		id := fmt.Sprint(c.ID)
		if !c.Confirmed() {
			id = printer.Pending("saving")
		}
		row := []any{
			id,
			c.Initials(),
			printer.TruncateString(c.Name, 40),
			printer.EmptyValueOrDefault(c.Email, "-"),
			printer.EmptyValueOrDefault(c.Phone, "-"),
		}
		if t.Wide() {
			row = append(row,
				printer.TruncateString(printer.EmptyValueOrDefault(c.Address, "-"), 40),
				printer.TruncateString(printer.EmptyValueOrDefault(c.Notes, "-"), 40),
			)
		}
		t.AddRow(row...)
	}
}

func newShowCmd(rt *cmdutil.Runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of a client",
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
			if err != nil {
				if !found {
					return fmt.Errorf("failed to get client: %w", err)
				}
				rt.WarnStale(err)
			}
			if !found {
				return fmt.Errorf("client %d not found", id)
			}
			return printClient(rt, output, c)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func printClient(rt *cmdutil.Runtime, output string, c models.Client) error {
	p, err := rt.Printer(output)
	if err != nil {
		return err
	}
	return p.Print(c, func(t *printer.TablePrinter) {
		t.SetHeaders("Property", "Value")
		t.AddRow("ID", c.ID)
		t.AddRow("Name", c.Name)
		t.AddRow("Email", printer.EmptyValueOrDefault(c.Email, "-"))
		t.AddRow("Phone", printer.EmptyValueOrDefault(c.Phone, "-"))
		t.AddRow("Address", printer.EmptyValueOrDefault(c.Address, "-"))
		t.AddRow("Notes", printer.EmptyValueOrDefault(c.Notes, "-"))
		if c.CreatedAt != nil {
			t.AddRow("Created", printer.FormatDate(c.CreatedAt.Time))
		}
	})
}
