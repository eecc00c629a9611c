package cli

import (
	"fmt"
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
)

// TestCommandTree verifies the CLI command hierarchy is correct.
func TestCommandTree(t *testing.T) {
	root := Root()

	expectedTopLevel := []string{
		"clients",
		"dashboard",
		"jobs",
		"login",
		"logout",
		"register",
		"settings",
		"version",
		"whoami",
	}

	gotTopLevel := childNames(root)
	slices.Sort(expectedTopLevel)

	if len(expectedTopLevel) != len(gotTopLevel) {
		t.Fatalf("top-level command count: got %d, want %d\n  got:  %v\n  want: %v",
			len(gotTopLevel), len(expectedTopLevel), gotTopLevel, expectedTopLevel)
	}
	for i := range expectedTopLevel {
		if expectedTopLevel[i] != gotTopLevel[i] {
			t.Errorf("top-level command mismatch at index %d: got %q, want %q\n  got:  %v\n  want: %v",
				i, gotTopLevel[i], expectedTopLevel[i], gotTopLevel, expectedTopLevel)
			break
		}
	}

	expectedSubcmdCounts := map[string]int{
		// list, show, create, update, delete
		"clients": 5,
		"jobs":    5,
	}

	for _, cmd := range root.Commands() {
		expected, ok := expectedSubcmdCounts[cmd.Name()]
		if !ok {
			continue
		}
		got := len(cmd.Commands())
		if got != expected {
			t.Errorf("%s subcommand count: got %d, want %d (commands: %v)",
				cmd.Name(), got, expected, childNames(cmd))
		}
	}
}

// TestCommandsHaveRequiredMetadata verifies every command has Use and Short fields set.
func TestCommandsHaveRequiredMetadata(t *testing.T) {
	root := Root()

	var walk func(cmd *cobra.Command, path string)
	walk = func(cmd *cobra.Command, path string) {
		if cmd.Use == "" {
			t.Errorf("%s: Use field is empty", path)
		}
		if cmd.Short == "" {
			t.Errorf("%s: Short field is empty", path)
		}
		for _, child := range cmd.Commands() {
			walk(child, path+"/"+child.Name())
		}
	}

	for _, cmd := range root.Commands() {
		walk(cmd, "trademate/"+cmd.Name())
	}
}

// TestCommandRoutes verifies which guard route each command is checked against.
func TestCommandRoutes(t *testing.T) {
	root := Root()

	tests := []struct {
		path     []string
		route    string
		needsApp bool
	}{
		{[]string{"login"}, "login", true},
		{[]string{"register"}, "register", true},
		{[]string{"logout"}, "login", true},
		{[]string{"whoami"}, cmdutil.RouteApp, true},
		{[]string{"clients", "list"}, "clients", true},
		{[]string{"clients", "delete"}, "clients", true},
		{[]string{"jobs", "create"}, "jobs", true},
		{[]string{"dashboard"}, "dashboard", true},
		{[]string{"version"}, cmdutil.RouteApp, false},
	}

	for _, tt := range tests {
		name := fmt.Sprint(tt.path)
		t.Run(name, func(t *testing.T) {
			cmd := root
			for _, p := range tt.path {
				cmd = findSubcommand(cmd, p)
				if cmd == nil {
					t.Fatalf("command %v not found", tt.path)
				}
			}
			if got := cmdutil.Route(cmd); got != tt.route {
				t.Errorf("route = %q, want %q", got, tt.route)
			}
			if got := cmdutil.NeedsApp(cmd); got != tt.needsApp {
				t.Errorf("NeedsApp = %v, want %v", got, tt.needsApp)
			}
		})
	}
}

// TestRequiredFlags verifies that commands with required flags have them marked.
func TestRequiredFlags(t *testing.T) {
	root := Root()

	tests := []struct {
		parent   string
		command  string
		required []string
	}{
		{"", "login", []string{"username"}},
		{"", "register", []string{"username", "email"}},
		{"clients", "create", []string{"name"}},
		{"jobs", "create", []string{"title"}},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"/"+tt.command, func(t *testing.T) {
			parentCmd := root
			if tt.parent != "" {
				parentCmd = findSubcommand(root, tt.parent)
				if parentCmd == nil {
					t.Fatalf("parent command %q not found", tt.parent)
				}
			}
			cmd := findSubcommand(parentCmd, tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found under %q", tt.command, tt.parent)
			}
			for _, flagName := range tt.required {
				f := cmd.Flags().Lookup(flagName)
				if f == nil {
					t.Errorf("flag --%s not found", flagName)
					continue
				}
				if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
					t.Errorf("flag --%s should be marked as required", flagName)
				}
			}
		})
	}
}

// TestListFlags verifies flag registration on the list commands.
func TestListFlags(t *testing.T) {
	root := Root()

	tests := []struct {
		parent   string
		flag     string
		defValue string
	}{
		{"clients", "search", ""},
		{"clients", "output", "table"},
		{"clients", "refresh", "false"},
		{"jobs", "search", ""},
		{"jobs", "status", ""},
		{"jobs", "output", "table"},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"/"+tt.flag, func(t *testing.T) {
			parentCmd := findSubcommand(root, tt.parent)
			if parentCmd == nil {
				t.Fatalf("command %q not found", tt.parent)
			}
			list := findSubcommand(parentCmd, "list")
			if list == nil {
				t.Fatalf("%s list command not found", tt.parent)
			}
			f := list.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not found on %s list", tt.flag, tt.parent)
			}
			if f.DefValue != tt.defValue {
				t.Errorf("flag --%s default = %q, want %q", tt.flag, f.DefValue, tt.defValue)
			}
		})
	}
}

// TestRootPersistentFlags verifies persistent flags on the root command.
func TestRootPersistentFlags(t *testing.T) {
	root := Root()

	persistentFlags := []string{"api-url", "api-token", "metrics-addr", "verbose"}
	for _, name := range persistentFlags {
		t.Run(name, func(t *testing.T) {
			f := root.PersistentFlags().Lookup(name)
			if f == nil {
				t.Fatalf("persistent flag --%s not found on root command", name)
			}
		})
	}
}

// TestArgsValidators verifies that commands enforce correct argument counts.
func TestArgsValidators(t *testing.T) {
	root := Root()

	tests := []struct {
		parent  string
		command string
		args    int
		wantErr bool
	}{
		{"", "login", 0, false},
		{"", "login", 1, true},
		{"", "dashboard", 0, false},
		{"", "dashboard", 1, true},
		{"clients", "list", 0, false},
		{"clients", "list", 1, true},
		{"clients", "show", 1, false},
		{"clients", "show", 0, true},
		{"clients", "update", 1, false},
		{"clients", "update", 2, true},
		{"clients", "delete", 1, false},
		{"clients", "delete", 0, true},
		{"jobs", "show", 1, false},
		{"jobs", "show", 0, true},
		{"jobs", "delete", 1, false},
		{"jobs", "create", 1, true},
	}

	for _, tt := range tests {
		name := tt.command
		if tt.parent != "" {
			name = tt.parent + "/" + tt.command
		}
		t.Run(name+"/"+argsDesc(tt.args, tt.wantErr), func(t *testing.T) {
			var cmd *cobra.Command
			if tt.parent == "" {
				cmd = findSubcommand(root, tt.command)
			} else {
				parentCmd := findSubcommand(root, tt.parent)
				if parentCmd == nil {
					t.Fatalf("parent command %q not found", tt.parent)
				}
				cmd = findSubcommand(parentCmd, tt.command)
			}
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			if cmd.Args == nil {
				if tt.wantErr {
					t.Errorf("command %q has no Args validator but expected error with %d args", name, tt.args)
				}
				return
			}
			args := make([]string, tt.args)
			for i := range args {
				args[i] = "1"
			}
			err := cmd.Args(cmd, args)
			if (err != nil) != tt.wantErr {
				t.Errorf("command %q Args(%d args) error = %v, wantErr %v", name, tt.args, err, tt.wantErr)
			}
		})
	}
}

// TestNormalizeBaseURL verifies scheme defaulting and trailing slash removal.
func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                             "http://localhost:8080/api",
		"crm.example.com/api/":         "http://crm.example.com/api",
		"https://crm.example.com/api/": "https://crm.example.com/api",
		" http://10.0.2.2:8080/api ":   "http://10.0.2.2:8080/api",
	}
	for in, want := range tests {
		if got := normalizeBaseURL(in); got != want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

// childNames returns sorted names of a command's direct children.
func childNames(cmd *cobra.Command) []string {
	children := cmd.Commands()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	slices.Sort(names)
	return names
}

// findSubcommand finds a direct child command by name.
func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, cmd := range parent.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// argsDesc returns a short description for test naming.
func argsDesc(n int, wantErr bool) string {
	if wantErr {
		return fmt.Sprintf("rejects_%d_args", n)
	}
	return fmt.Sprintf("accepts_%d_args", n)
}
