package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
)

// NewVersionCmd prints the build version.
func NewVersionCmd(rt *cmdutil.Runtime, version string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cmdutil.NoAppAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(rt.Out, "trademate version %s %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
