package cmdutil

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademate-dev/trademate/internal/mutation"
)

func TestRouteInheritsFromParent(t *testing.T) {
	root := &cobra.Command{Use: "trademate"}
	group := &cobra.Command{Use: "jobs", Annotations: map[string]string{RouteAnnotation: "jobs"}}
	list := &cobra.Command{Use: "list"}
	version := &cobra.Command{Use: "version", Annotations: map[string]string{NoAppAnnotation: "true"}}
	group.AddCommand(list)
	root.AddCommand(group, version)

	assert.Equal(t, "jobs", Route(list))
	assert.Equal(t, RouteApp, Route(root))
	assert.True(t, NeedsApp(list))
	assert.False(t, NeedsApp(version))
}

func TestReported(t *testing.T) {
	mErr := &mutation.MutationError{Kind: mutation.KindNetwork, Op: mutation.OpCreate, Key: "jobs", Err: errors.New("offline")}
	assert.True(t, Reported(mErr))
	assert.True(t, Reported(fmt.Errorf("wrapped: %w", mErr)))
	assert.False(t, Reported(errors.New("not signed in")))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestNotifyAndWarn(t *testing.T) {
	var errOut bytes.Buffer
	rt := NewRuntime()
	rt.Err = &errOut

	rt.Notify(mutation.Notification{Message: "Could not delete client: it was changed or removed on the server."})
	rt.WarnStale(errors.New("timeout"))
	assert.Equal(t,
		"Error: Could not delete client: it was changed or removed on the server.\n"+
			"Warning: showing cached data, refresh failed: timeout\n",
		errOut.String())

	assert.Error(t, rt.Ready())
	_, err := rt.Printer("html")
	assert.Error(t, err)
}
