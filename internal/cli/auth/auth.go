// Package auth implements login, register, logout and whoami.
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/printer"
)

// NewCommands returns the session commands, which live at the top level.
func NewCommands(rt *cmdutil.Runtime) []*cobra.Command {
	return []*cobra.Command{
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
	}
}

func newLoginCmd(rt *cmdutil.Runtime) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in to TradeMate",
		Long:        `Signs in and stores the session so later commands are authenticated.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "login"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			if password == "" {
				var err error
				if password, err = readPassword(rt, "Password: "); err != nil {
					return err
				}
			}
			sess, err := rt.App.Sessions.Login(cmd.Context(), credentials(username, password))
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Out, fmt.Sprintf("Signed in as %s", sess.Username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newRegisterCmd(rt *cmdutil.Runtime) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create a TradeMate account",
		Long:        `Creates an account and signs in with it.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "register"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			if password == "" {
				var err error
				if password, err = readPassword(rt, "Password: "); err != nil {
					return err
				}
			}
			sess, err := rt.App.Sessions.Register(cmd.Context(), profile(username, email, password))
			if err != nil {
				return err
			}
			printer.PrintSuccess(rt.Out, fmt.Sprintf("Registered and signed in as %s", sess.Username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(rt *cmdutil.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Sign out and forget the stored session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cmdutil.RouteAnnotation: "login"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			sess, signedIn := rt.App.Sessions.Current()
			if err := rt.App.Logout(); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			if !signedIn {
				_, _ = fmt.Fprintln(rt.Out, "Not signed in")
				return nil
			}
			printer.PrintSuccess(rt.Out, fmt.Sprintf("Signed out %s", sess.Username))
			return nil
		},
	}
}

func newWhoamiCmd(rt *cmdutil.Runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			sess, _ := rt.App.Sessions.Current()
			p, err := rt.Printer(output)
			if err != nil {
				return err
			}
			return p.Print(sess, func(t *printer.TablePrinter) {
				t.SetHeaders("Property", "Value")
				t.AddRow("Username", sess.Username)
				t.AddRow("Email", printer.EmptyValueOrDefault(sess.Email, "-"))
				if !sess.ExpiresAt.IsZero() {
					t.AddRow("Expires", printer.FormatDate(sess.ExpiresAt.Local()))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}
