package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Printer writes command output in the selected format
type Printer struct {
	out        io.Writer
	outputType OutputType
}

// New creates a new printer with the specified output type
func New(outputType OutputType) *Printer {
	return &Printer{
		out:        os.Stdout,
		outputType: outputType,
	}
}

// SetOutput sets the output writer
func (p *Printer) SetOutput(out io.Writer) {
	p.out = out
}

// Out returns the output writer
func (p *Printer) Out() io.Writer { return p.out }

// OutputType returns the selected format
func (p *Printer) OutputType() OutputType { return p.outputType }

// Print writes data as JSON or YAML, or calls table for the table formats.
func (p *Printer) Print(data any, table func(*TablePrinter)) error {
	switch p.outputType {
	case OutputTypeJSON:
		return p.PrintJSON(data)
	case OutputTypeYAML:
		return p.PrintYAML(data)
	}
	var opts []Option
	if p.outputType == OutputTypeWide {
		opts = append(opts, WithWide())
	}
	t := NewTablePrinter(p.out, opts...)
	table(t)
	return t.Render()
}

// PrintJSON prints data in JSON format
func (p *Printer) PrintJSON(data any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintYAML prints data in YAML format
func (p *Printer) PrintYAML(data any) error {
	encoder := yaml.NewEncoder(p.out)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "✓ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "Warning: %s\n", message)
}

// FormatDate formats a schedule date, or returns "-" for none
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// FormatAge formats the time since t as a short age string (e.g., "5d", "3h", "45m")
func FormatAge(now, t time.Time) string {
	duration := now.Sub(t)
	if duration < 0 {
		duration = 0
	}

	days := int(duration.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}

	hours := int(duration.Hours())
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}

	minutes := int(duration.Minutes())
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	seconds := int(duration.Seconds())
	return fmt.Sprintf("%ds", seconds)
}
