// Package protocol defines the JSON message envelope exchanged with the
// robot backend. The connectivity layer transports these as opaque text;
// only the UI and the simulator encode and decode them.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

type MessageType string

const (
	MsgInput                MessageType = "input"
	MsgOutput               MessageType = "output"
	MsgSystem               MessageType = "system"
	MsgConfig               MessageType = "config"
	MsgCurrentConfiguration MessageType = "currentConfiguration"
	MsgConfigConfirmation   MessageType = "config_confirmation"
	MsgPartialSTTResult     MessageType = "partial_stt_result"
	MsgGamepadState         MessageType = "gamepad_state"
)

// Message is the envelope around every payload: {type, timestamp, payload}.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// InputPayload carries user text toward the robot; the backend echoes it
// back with the same shape.
type InputPayload struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"` // gui, stt, stt_auto, gui_manual
}

// OutputPayload is a reply from the robot, shown in the chat transcript.
type OutputPayload struct {
	Sender              string `json:"sender"`
	Text                string `json:"text"`
	OriginalInputSource string `json:"original_input_source,omitempty"`
}

// SystemPayload is an informational, warning or error notice.
type SystemPayload struct {
	Sender string         `json:"sender"`
	Level  string         `json:"level"` // info, warning, error
	Text   string         `json:"text"`
	Detail map[string]any `json:"detail,omitempty"`
}

// ConfigPayload asks the backend to change one setting.
type ConfigPayload struct {
	ConfigItem string `json:"config_item"`
	Value      any    `json:"value"`
}

// CurrentConfigurationPayload is the backend's full settings dump.
type CurrentConfigurationPayload struct {
	Settings map[string]any `json:"settings"`
}

// ConfigConfirmationPayload reports the outcome of a config change.
type ConfigConfirmationPayload struct {
	ConfigItem       string `json:"config_item"`
	Success          bool   `json:"success"`
	CurrentValue     any    `json:"current_value"`
	MessageToDisplay string `json:"message_to_display"`
}

// PartialSTTPayload is a live speech-to-text preview.
type PartialSTTPayload struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Encode wraps a payload in the envelope and returns the wire text.
func Encode(t MessageType, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", t, err)
	}
	data, err := json.Marshal(Message{Type: t, Timestamp: timestamp(), Payload: raw})
	if err != nil {
		return "", fmt.Errorf("marshal %s envelope: %w", t, err)
	}
	return string(data), nil
}

// EncodeInput builds a user input message.
func EncodeInput(text, source string) (string, error) {
	return Encode(MsgInput, InputPayload{Text: text, Source: source})
}

// EncodeConfig builds a config change request.
func EncodeConfig(item string, value any) (string, error) {
	return Encode(MsgConfig, ConfigPayload{ConfigItem: item, Value: value})
}

// Decode parses the envelope and validates its shape. The payload stays raw;
// use DecodePayload to get the typed form.
func Decode(text string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("decode envelope: missing type")
	}
	if len(msg.Payload) == 0 {
		return Message{}, fmt.Errorf("decode envelope: missing payload")
	}
	return msg, nil
}

// DecodePayload unmarshals the raw payload into dst.
func DecodePayload(msg Message, dst any) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}
