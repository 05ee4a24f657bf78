// Package app holds the root Bubble Tea model of the companion TUI. It
// bridges the connectivity layer's channel subscriptions into Bubble Tea
// messages and turns keyboard input into wire messages.
package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/connect"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/protocol"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/theme"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/views/chat"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/views/status"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Connector is the slice of the connectivity manager the TUI needs.
// *connect.Manager satisfies it; tests substitute a fake.
type Connector interface {
	States() (<-chan connect.State, func())
	Messages() (<-chan string, func())
	Send(text string) bool
	Endpoint() string
	Stop()
}

// Messages produced by the channel-wait commands.

// StateMsg carries a connection state transition.
type StateMsg connect.State

// InboundMsg carries one raw wire message from the robot.
type InboundMsg string

type streamClosedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	conn Connector

	states      <-chan connect.State
	cancelState func()
	inbound     <-chan string
	cancelMsgs  func()

	keys   KeyMap
	width  int
	height int

	statusBar status.Model
	chat      chat.Model
}

// New creates the root model and subscribes to the connectivity layer.
func New(conn Connector) Model {
	states, cancelState := conn.States()
	inbound, cancelMsgs := conn.Messages()
	return Model{
		conn:        conn,
		states:      states,
		cancelState: cancelState,
		inbound:     inbound,
		cancelMsgs:  cancelMsgs,
		keys:        DefaultKeyMap(),
		statusBar:   status.New(),
		chat:        chat.New(),
	}
}

// Init starts the channel-wait commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitState(m.states), waitInbound(m.inbound))
}

func waitState(ch <-chan connect.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return StateMsg(s)
	}
}

func waitInbound(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return InboundMsg(text)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		// status bar takes 3 rows, the help line 1
		m.chat.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancelState()
			m.cancelMsgs()
			m.conn.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			return m.submit()
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd

	case StateMsg:
		m.statusBar.State = connect.State(msg)
		m.statusBar.Endpoint = m.conn.Endpoint()
		return m, waitState(m.states)

	case InboundMsg:
		m.handleInbound(string(msg))
		return m, waitInbound(m.inbound)

	case streamClosedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// submit turns the input line into a wire message. Lines starting with
// "/set item value" become config changes, everything else is speech input.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.chat.Value())
	if text == "" {
		return m, nil
	}
	m.chat.Reset()

	wire, err := buildOutgoing(text)
	if err != nil {
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: "gui", Text: err.Error()})
		return m, nil
	}
	if !m.conn.Send(wire) {
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: "gui", Text: "not connected, message dropped"})
		return m, nil
	}
	m.chat.Append(chat.Entry{Role: chat.RoleUser, Text: text})
	return m, nil
}

// buildOutgoing encodes one input line as a wire message.
func buildOutgoing(text string) (string, error) {
	if item, raw, ok := parseSetCommand(text); ok {
		return protocol.EncodeConfig(item, parseValue(raw))
	}
	return protocol.EncodeInput(text, "gui")
}

// parseSetCommand splits "/set item value" into its parts.
func parseSetCommand(text string) (item, value string, ok bool) {
	if !strings.HasPrefix(text, "/set ") {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, "/set "))
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSpace(parts[1]), true
}

// parseValue keeps config values typed on the wire: booleans and numbers
// are sent as such, anything else as a string.
func parseValue(raw string) any {
	// numbers before booleans, ParseBool would claim "1" and "0"
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// handleInbound decodes one wire message and routes it to the transcript.
func (m *Model) handleInbound(text string) {
	msg, err := protocol.Decode(text)
	if err != nil {
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: "gui", Text: fmt.Sprintf("unreadable message: %v", err)})
		return
	}

	switch msg.Type {
	case protocol.MsgOutput:
		var p protocol.OutputPayload
		if protocol.DecodePayload(msg, &p) != nil {
			return
		}
		m.chat.SetPartial("")
		m.chat.Append(chat.Entry{Role: chat.RoleRobot, Sender: p.Sender, Text: p.Text})

	case protocol.MsgSystem:
		var p protocol.SystemPayload
		if protocol.DecodePayload(msg, &p) != nil {
			return
		}
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: p.Sender, Text: fmt.Sprintf("%s: %s", p.Level, p.Text)})

	case protocol.MsgPartialSTTResult:
		var p protocol.PartialSTTPayload
		if protocol.DecodePayload(msg, &p) != nil {
			return
		}
		m.chat.SetPartial(p.Text)

	case protocol.MsgConfigConfirmation:
		var p protocol.ConfigConfirmationPayload
		if protocol.DecodePayload(msg, &p) != nil {
			return
		}
		verdict := "accepted"
		if !p.Success {
			verdict = "rejected"
		}
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: "robot", Text: fmt.Sprintf("config %s %s", p.ConfigItem, verdict)})

	case protocol.MsgCurrentConfiguration:
		var p protocol.CurrentConfigurationPayload
		if protocol.DecodePayload(msg, &p) != nil {
			return
		}
		m.chat.Append(chat.Entry{Role: chat.RoleSystem, Sender: "robot", Text: formatSettings(p.Settings)})

	case protocol.MsgInput:
		// our own input echoed back, already shown locally
	}
}

// formatSettings renders the settings map as a stable one-line summary.
func formatSettings(settings map[string]any) string {
	if len(settings) == 0 {
		return "configuration: (empty)"
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, settings[k]))
	}
	return "configuration: " + strings.Join(parts, " ")
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	help := lipgloss.NewStyle().Foreground(theme.ColorDimmed).
		Render("  enter:send  /set item value:configure  ctrl+c:quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		m.chat.View(),
		help,
	)
}
