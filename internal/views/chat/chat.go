// Package chat renders the conversation transcript and the input line.
package chat

import (
	"fmt"
	"strings"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/theme"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Role identifies who produced a transcript entry.
type Role int

const (
	RoleUser Role = iota
	RoleRobot
	RoleSystem
)

// Entry is one line of the transcript.
type Entry struct {
	Role   Role
	Sender string
	Text   string
}

var (
	styleUser   = lipgloss.NewStyle().Foreground(theme.ColorUser).Bold(true)
	styleRobot  = lipgloss.NewStyle().Foreground(theme.ColorRobot).Bold(true)
	styleSystem = lipgloss.NewStyle().Foreground(theme.ColorSystem)
	stylePart   = lipgloss.NewStyle().Foreground(theme.ColorDimmed).Italic(true)
)

// Model holds the transcript viewport and the input field.
type Model struct {
	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer

	entries []Entry
	partial string // in-progress speech transcription, replaced on each update

	width  int
	height int
}

// New creates an empty chat view.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Say something (or /set item value)"
	ti.CharLimit = 512
	ti.Focus()

	return Model{
		viewport: viewport.New(80, 10),
		input:    ti,
	}
}

// SetSize resizes the transcript viewport and rebuilds the markdown
// renderer for the new wrap width.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	// input line plus its border takes the bottom rows
	vpHeight := height - 3
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4

	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-10),
	); err == nil {
		m.renderer = r
	}
	m.refresh()
}

// Append adds an entry to the transcript and scrolls to the bottom.
func (m *Model) Append(e Entry) {
	m.entries = append(m.entries, e)
	m.refresh()
}

// SetPartial replaces the in-progress transcription preview. An empty
// string clears it.
func (m *Model) SetPartial(text string) {
	m.partial = text
	m.refresh()
}

// Value returns the current input text.
func (m Model) Value() string {
	return m.input.Value()
}

// Reset clears the input field.
func (m *Model) Reset() {
	m.input.Reset()
}

// Update forwards key and mouse events to the input field and viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	// only non-rune keys scroll the viewport; typing stays in the input
	if k, ok := msg.(tea.KeyMsg); !ok || k.Type != tea.KeyRunes {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the transcript above the input line.
func (m Model) View() string {
	inputBox := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Width(m.viewport.Width - 2).
		Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), inputBox)
}

func (m *Model) refresh() {
	var b strings.Builder
	for _, e := range m.entries {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	if m.partial != "" {
		b.WriteString(stylePart.Render(fmt.Sprintf("… %s", m.partial)))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderEntry(e Entry) string {
	switch e.Role {
	case RoleUser:
		return styleUser.Render("you> ") + e.Text
	case RoleRobot:
		label := e.Sender
		if label == "" {
			label = "robot"
		}
		return styleRobot.Render(label+"> ") + m.renderMarkdown(e.Text)
	default:
		return styleSystem.Render("[" + e.Sender + "] " + e.Text)
	}
}

// renderMarkdown renders robot replies as markdown, falling back to the
// raw text when no renderer is available or rendering fails.
func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
