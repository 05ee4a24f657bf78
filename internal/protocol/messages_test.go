package protocol

import (
	"strings"
	"testing"
)

func TestEncodeInput(t *testing.T) {
	wire, err := EncodeInput("hola robot", "gui")
	if err != nil {
		t.Fatalf("EncodeInput: %v", err)
	}

	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Type != MsgInput {
		t.Errorf("type = %q, want %q", msg.Type, MsgInput)
	}
	if msg.Timestamp == "" {
		t.Error("timestamp missing")
	}

	var p InputPayload
	if err := DecodePayload(msg, &p); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.Text != "hola robot" || p.Source != "gui" {
		t.Errorf("payload = %+v", p)
	}
}

func TestDecodeBackendMessages(t *testing.T) {
	tests := []struct {
		name string
		wire string
		typ  MessageType
	}{
		{
			name: "output",
			wire: `{"type":"output","timestamp":"2024-05-01T10:00:00Z","payload":{"sender":"Umebot","text":"hola","original_input_source":"gui"}}`,
			typ:  MsgOutput,
		},
		{
			name: "system",
			wire: `{"type":"system","payload":{"sender":"Servidor","level":"error","text":"fallo interno"}}`,
			typ:  MsgSystem,
		},
		{
			name: "partial stt",
			wire: `{"type":"partial_stt_result","payload":{"text":"hola ro","is_final":false}}`,
			typ:  MsgPartialSTTResult,
		},
		{
			name: "config confirmation",
			wire: `{"type":"config_confirmation","payload":{"config_item":"volume","success":true,"current_value":70,"message_to_display":"ok"}}`,
			typ:  MsgConfigConfirmation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.wire)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if msg.Type != tt.typ {
				t.Errorf("type = %q, want %q", msg.Type, tt.typ)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		wire string
	}{
		{"not json", "hola"},
		{"missing type", `{"payload":{"text":"x"}}`},
		{"missing payload", `{"type":"input"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.wire); err == nil {
				t.Error("Decode accepted malformed message")
			}
		})
	}
}

func TestEncodeConfig(t *testing.T) {
	wire, err := EncodeConfig("tts_voice", "female_es")
	if err != nil {
		t.Fatalf("EncodeConfig: %v", err)
	}
	if !strings.Contains(wire, `"config_item":"tts_voice"`) {
		t.Errorf("wire = %s", wire)
	}

	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var p ConfigPayload
	if err := DecodePayload(msg, &p); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.ConfigItem != "tts_voice" || p.Value != "female_es" {
		t.Errorf("payload = %+v", p)
	}
}
