// Package cmdutil holds what the trademate subcommands share: the
// running application, output streams and the route annotations the
// root command checks against the guard.
package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/mutation"
	"github.com/trademate-dev/trademate/internal/trademate"
	"github.com/trademate-dev/trademate/pkg/printer"
)

const (
	// RouteAnnotation names the screen a command belongs to. The root
	// command asks the guard whether it may run.
	RouteAnnotation = "trademate/route"
	// NoAppAnnotation marks commands that run without the application.
	NoAppAnnotation = "trademate/no-app"

	// RouteApp is the default route of commands that need a session.
	RouteApp = "app"
)

// Runtime is filled in by the root command before any subcommand runs.
type Runtime struct {
	App *trademate.App
	Out io.Writer
	Err io.Writer
	In  io.Reader
	Now func() time.Time
}

// NewRuntime returns a runtime writing to the process streams.
func NewRuntime() *Runtime {
	return &Runtime{Out: os.Stdout, Err: os.Stderr, In: os.Stdin, Now: time.Now}
}

// Ready returns an error when the application was not started.
func (r *Runtime) Ready() error {
	if r.App == nil {
		return fmt.Errorf("application not initialized")
	}
	return nil
}

// Printer returns a printer for the --output value.
func (r *Runtime) Printer(output string) (*printer.Printer, error) {
	t, err := printer.ParseOutputType(output)
	if err != nil {
		return nil, err
	}
	p := printer.New(t)
	p.SetOutput(r.Out)
	return p, nil
}

// Notify prints a failed mutation. Commands return the error afterwards
// and Execute does not print it a second time.
func (r *Runtime) Notify(n mutation.Notification) {
	printer.PrintError(r.Err, n.Message)
}

// WarnStale tells the user that the shown data may be out of date.
func (r *Runtime) WarnStale(err error) {
	printer.PrintWarning(r.Err, fmt.Sprintf("showing cached data, refresh failed: %v", err))
}

// Route returns the route of cmd, inherited from its parents.
func Route(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if route, ok := c.Annotations[RouteAnnotation]; ok {
			return route
		}
	}
	return RouteApp
}

// NeedsApp reports whether cmd runs against the application.
func NeedsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[NoAppAnnotation]; ok {
			return false
		}
	}
	return true
}

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var mErr *mutation.MutationError
	return errors.As(err, &mErr)
}

// ParseID parses a record id argument.
func ParseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive number", arg)
	}
	return id, nil
}
