package printer

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/trademate-dev/trademate/pkg/models"
)

var statusStyles = map[models.Status]lipgloss.Style{
	models.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	models.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	models.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	models.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true),
}

var unconfirmedStyle = lipgloss.NewStyle().Faint(true).Italic(true)

// StatusBadge renders the display label of a job status. Colour is
// dropped automatically when the output is not a terminal.
func StatusBadge(s models.Status) string {
	label := s.Label()
	if style, ok := statusStyles[s]; ok {
		return style.Render(label)
	}
	return label
}

// Pending marks a row that the server has not confirmed yet.
func Pending(text string) string {
	return unconfirmedStyle.Render(text)
}
