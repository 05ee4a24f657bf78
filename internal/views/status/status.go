// Package status renders the connection status bar.
package status

import (
	"fmt"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/connect"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the status bar state.
type Model struct {
	State    connect.State
	Endpoint string // host:port once resolved, empty otherwise
	Width    int
}

// New creates a status bar model.
func New() Model {
	return Model{State: connect.StateIdle}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var dot string
	var color lipgloss.Color
	switch m.State {
	case connect.StateConnected:
		dot, color = "●", theme.ColorConnected
	case connect.StateConnecting, connect.StateResolved, connect.StateServiceFound:
		dot, color = "◐", theme.ColorConnecting
	case connect.StateReconnecting:
		dot, color = "◑", theme.ColorReconnecting
	case connect.StateDiscovering:
		dot, color = "◌", theme.ColorDiscovering
	case connect.StateDisconnected:
		dot, color = "○", theme.ColorDisconnected
	default:
		dot, color = "○", theme.ColorIdle
	}

	connStr := lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%s %s", dot, m.State))

	content := connStr
	if m.Endpoint != "" {
		sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorDimmed).Render(m.Endpoint)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
