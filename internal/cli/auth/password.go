package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/trademate-dev/trademate/internal/cli/cmdutil"
)

var errPromptCanceled = errors.New("password entry canceled")

// passwordPrompt is a single masked input line.
type passwordPrompt struct {
	label string
	input textinput.Model
	ok    bool
}

func newPasswordPrompt(label string) *passwordPrompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Focus()
	return &passwordPrompt{label: label, input: ti}
}

func (p *passwordPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (p *passwordPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m, ok := msg.(tea.KeyMsg); ok {
		switch m.String() {
		case "enter":
			p.ok = true
			return p, tea.Quit
		case "esc", "ctrl+c", "ctrl+d":
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *passwordPrompt) View() string {
	if p.ok {
		return ""
	}
	return lipgloss.NewStyle().Bold(true).Render(p.label) + p.input.View() + "\n"
}

// Ok reports whether the prompt was submitted rather than canceled.
func (p *passwordPrompt) Ok() bool { return p.ok }

func (p *passwordPrompt) Value() string { return p.input.Value() }

// readPassword asks for a password on the terminal with the input masked.
// Piped input is read as a plain line so scripts can feed it.
func readPassword(rt *cmdutil.Runtime, label string) (string, error) {
	f, ok := rt.In.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return readLine(rt.In, rt.Err, label)
	}
	prompt := newPasswordPrompt(label)
	if _, err := tea.NewProgram(prompt, tea.WithInput(f), tea.WithOutput(rt.Err)).Run(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !prompt.Ok() {
		return "", errPromptCanceled
	}
	return prompt.Value(), nil
}

func readLine(in io.Reader, out io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
