package cli

import (
	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/pkg/printer"
)

type settingsView struct {
	APIBaseURL      string `json:"apiBaseUrl" yaml:"apiBaseUrl"`
	SessionPolicy   string `json:"sessionPolicy" yaml:"sessionPolicy"`
	SignedIn        bool   `json:"signedIn" yaml:"signedIn"`
	Username        string `json:"username,omitempty" yaml:"username,omitempty"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
	ClientsMaxAge   string `json:"clientsMaxAge" yaml:"clientsMaxAge"`
	JobsMaxAge      string `json:"jobsMaxAge" yaml:"jobsMaxAge"`
	DashboardMaxAge string `json:"dashboardMaxAge" yaml:"dashboardMaxAge"`
	RequestTimeout  string `json:"requestTimeout" yaml:"requestTimeout"`
}

// NewSettingsCmd shows the account and the effective configuration.
func NewSettingsCmd(rt *cmdutil.Runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the account and client configuration",
		Args:  cobra.NoArgs,
		// reachable signed out so the configuration can be checked
		Annotations: map[string]string{cmdutil.RouteAnnotation: "login"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Ready(); err != nil {
				return err
			}
			cfg := rt.App.Config
			sess, signedIn := rt.App.Sessions.Current()
			v := settingsView{
				APIBaseURL:      rt.App.API.BaseURL,
				SessionPolicy:   cfg.SessionPolicy,
				SignedIn:        signedIn,
				Username:        sess.Username,
				Email:           sess.Email,
				ClientsMaxAge:   cfg.Cache.ClientsMaxAge.String(),
				JobsMaxAge:      cfg.Cache.JobsMaxAge.String(),
				DashboardMaxAge: cfg.Cache.DashboardMaxAge.String(),
				RequestTimeout:  cfg.RequestTimeout.String(),
			}
			p, err := rt.Printer(output)
			if err != nil {
				return err
			}
			return p.Print(v, func(t *printer.TablePrinter) {
				t.SetHeaders("Setting", "Value")
				t.AddRow("API URL", v.APIBaseURL)
				if signedIn {
					t.AddRow("Signed in as", v.Username)
					t.AddRow("Email", printer.EmptyValueOrDefault(v.Email, "-"))
				} else {
					t.AddRow("Signed in as", "-")
				}
				t.AddRow("Session policy", v.SessionPolicy)
				t.AddRow("Request timeout", v.RequestTimeout)
				t.AddRow("Clients cache", v.ClientsMaxAge)
				t.AddRow("Jobs cache", v.JobsMaxAge)
				t.AddRow("Dashboard cache", v.DashboardMaxAge)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}
