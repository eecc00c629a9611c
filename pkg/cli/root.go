package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli"
	"github.com/trademate-dev/trademate/internal/cli/auth"
	"github.com/trademate-dev/trademate/internal/cli/clients"
	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
	"github.com/trademate-dev/trademate/internal/cli/jobs"
	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/internal/config"
	"github.com/trademate-dev/trademate/internal/guard"
	"github.com/trademate-dev/trademate/internal/metrics"
	"github.com/trademate-dev/trademate/internal/trademate"
	"github.com/trademate-dev/trademate/pkg/printer"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// CLIOptions configures the CLI behavior
type CLIOptions struct {
	// Config replaces loading .env and TRADEMATE_* variables.
	Config *config.Config
	// AppOptions are passed to trademate.New, e.g. a session backend.
	AppOptions []trademate.Option

	Out io.Writer
	Err io.Writer
	In  io.Reader
}

type rootFlags struct {
	apiURL      string
	apiToken    string
	metricsAddr string
	verbose     bool
}

// NewRootCmd builds the command tree. The returned close function
// releases the application once the command has run.
func NewRootCmd(opts CLIOptions) (root *cobra.Command, closeApp func()) {
	rt := cmdutil.NewRuntime()
	if opts.Out != nil {
		rt.Out = opts.Out
	}
	if opts.Err != nil {
		rt.Err = opts.Err
	}
	if opts.In != nil {
		rt.In = opts.In
	}

	var flags rootFlags
	root = &cobra.Command{
		Use:           "trademate",
		Short:         "TradeMate CRM client",
		Long:          `trademate manages the clients and jobs of a trades business against the TradeMate API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmdutil.NeedsApp(cmd) {
				return nil
			}
			cfg, err := resolveConfig(cmd, opts.Config, flags)
			if err != nil {
				return err
			}
			logger := newLogger(rt.Err, cfg, flags.verbose)

			appOpts := append([]trademate.Option{
				trademate.WithLogger(logger),
				trademate.WithNotifier(rt),
				trademate.WithClock(rt.Now),
			}, opts.AppOptions...)
			app, err := trademate.New(cfg, appOpts...)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			rt.App = app
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}

			if cfg.MetricsAddr != "" {
				go func() {
					if err := metrics.Serve(cmd.Context(), cfg.MetricsAddr, app.Registry); err != nil {
						logger.Warn("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
					}
				}()
			}

			route := cmdutil.Route(cmd)
			switch app.Guard.Check(route) {
			case guard.Proceed:
				return nil
			case guard.Wait:
				return fmt.Errorf("session is still loading")
			default:
				return fmt.Errorf("not signed in: run `trademate login` first")
			}
		},
	}
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "API base URL (overrides TRADEMATE_API_BASE_URL; default "+client.DefaultBaseURL+")")
	root.PersistentFlags().StringVar(&flags.apiToken, "api-token", "", "Bearer token to use instead of the stored session (overrides TRADEMATE_API_TOKEN)")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "V", false, "Verbose output")

	root.AddCommand(auth.NewCommands(rt)...)
	root.AddCommand(clients.NewClientsCmd(rt))
	root.AddCommand(jobs.NewJobsCmd(rt))
	root.AddCommand(cli.NewDashboardCmd(rt))
	root.AddCommand(cli.NewSettingsCmd(rt))
	root.AddCommand(cli.NewVersionCmd(rt, Version))

	closeApp = func() {
		if rt.App != nil {
			_ = rt.App.Close()
		}
	}
	return root, closeApp
}

// Root returns a command tree writing to the process streams.
func Root() *cobra.Command {
	root, _ := NewRootCmd(CLIOptions{})
	return root
}

// Run executes args and returns the process exit code.
func Run(ctx context.Context, args []string, opts CLIOptions) int {
	root, closeApp := NewRootCmd(opts)
	defer closeApp()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		// mutation failures were already shown by the notifier
		if !cmdutil.Reported(err) {
			errOut := opts.Err
			if errOut == nil {
				errOut = os.Stderr
			}
			printer.PrintError(errOut, err.Error())
		}
		return 1
	}
	return 0
}

func resolveConfig(cmd *cobra.Command, preset *config.Config, flags rootFlags) (*config.Config, error) {
	var cfg config.Config
	if preset != nil {
		cfg = *preset
	} else {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.APIBaseURL = flags.apiURL
	}
	if pf.Changed("api-token") {
		cfg.APIToken = flags.apiToken
	}
	if pf.Changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	cfg.APIBaseURL = normalizeBaseURL(cfg.APIBaseURL)
	return &cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return client.DefaultBaseURL
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	return "http://" + strings.TrimRight(trimmed, "/")
}
