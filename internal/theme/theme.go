// Package theme provides the Lip Gloss color palette and reusable styles
// for the companion TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Connection state colors.
var (
	ColorConnected    = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorReconnecting = lipgloss.Color("#f59e0b")
	ColorDiscovering  = lipgloss.Color("#3b82f6")
	ColorDisconnected = lipgloss.Color("#dc2626")
	ColorIdle         = lipgloss.Color("#4b5563")
)

// Chat roles.
var (
	ColorUser   = lipgloss.Color("#06b6d4")
	ColorRobot  = lipgloss.Color("#a855f7")
	ColorSystem = lipgloss.Color("#9ca3af")
)

// System message levels.
var (
	ColorInfo    = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
)
