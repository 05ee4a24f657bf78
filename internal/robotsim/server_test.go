package robotsim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/protocol"
	"github.com/gorilla/websocket"
)

func startSim(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub()
	srv := NewServer(config.Default().Sim, hub)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, hub
}

func dialSim(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws_bidirectional"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.Decode(string(data))
	if err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return msg
}

func TestInputEchoAndReply(t *testing.T) {
	ts, _ := startSim(t)
	conn := dialSim(t, ts)

	wire, err := protocol.EncodeInput("hello robot", "gui")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(wire)); err != nil {
		t.Fatalf("write: %v", err)
	}

	echo := readMessage(t, conn)
	if echo.Type != protocol.MsgInput {
		t.Fatalf("first message type = %q, want input echo", echo.Type)
	}
	var in protocol.InputPayload
	if err := protocol.DecodePayload(echo, &in); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if in.Text != "hello robot" || in.Source != "gui" {
		t.Errorf("echo payload = %+v", in)
	}

	reply := readMessage(t, conn)
	if reply.Type != protocol.MsgOutput {
		t.Fatalf("second message type = %q, want output", reply.Type)
	}
	var out protocol.OutputPayload
	if err := protocol.DecodePayload(reply, &out); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !strings.Contains(out.Text, "hello robot") {
		t.Errorf("reply text = %q", out.Text)
	}
	if out.Sender == "" {
		t.Error("reply has no sender")
	}
}

func TestConfigChangeConfirmedAndBroadcast(t *testing.T) {
	ts, _ := startSim(t)
	conn := dialSim(t, ts)

	wire, err := protocol.EncodeConfig("volume", 40)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(wire)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conf := readMessage(t, conn)
	if conf.Type != protocol.MsgConfigConfirmation {
		t.Fatalf("first message type = %q, want confirmation", conf.Type)
	}
	var cp protocol.ConfigConfirmationPayload
	if err := protocol.DecodePayload(conf, &cp); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	if !cp.Success || cp.ConfigItem != "volume" {
		t.Errorf("confirmation = %+v", cp)
	}

	cur := readMessage(t, conn)
	if cur.Type != protocol.MsgCurrentConfiguration {
		t.Fatalf("second message type = %q, want currentConfiguration", cur.Type)
	}
	var cc protocol.CurrentConfigurationPayload
	if err := protocol.DecodePayload(cur, &cc); err != nil {
		t.Fatalf("decode configuration: %v", err)
	}
	if got, ok := cc.Settings["volume"].(float64); !ok || got != 40 {
		t.Errorf("settings.volume = %v", cc.Settings["volume"])
	}
}

func TestUnknownConfigItemRejected(t *testing.T) {
	ts, _ := startSim(t)
	conn := dialSim(t, ts)

	wire, _ := protocol.EncodeConfig("warp_drive", true)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(wire)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conf := readMessage(t, conn)
	var cp protocol.ConfigConfirmationPayload
	if err := protocol.DecodePayload(conf, &cp); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	if cp.Success {
		t.Error("unknown setting reported success")
	}
}

func TestMalformedMessageGetsSystemError(t *testing.T) {
	ts, _ := startSim(t)
	conn := dialSim(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != protocol.MsgSystem {
		t.Fatalf("message type = %q, want system", msg.Type)
	}
	var sp protocol.SystemPayload
	if err := protocol.DecodePayload(msg, &sp); err != nil {
		t.Fatalf("decode system: %v", err)
	}
	if sp.Level != "error" {
		t.Errorf("level = %q, want error", sp.Level)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, hub := startSim(t)
	dialSim(t, ts)

	// wait for the hub to register the client
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if n, ok := body["active_websocket_clients"].(float64); !ok || n != 1 {
		t.Errorf("active_websocket_clients = %v", body["active_websocket_clients"])
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	ts, hub := startSim(t)
	c1 := dialSim(t, ts)
	c2 := dialSim(t, ts)

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	wire, _ := protocol.Encode(protocol.MsgSystem, protocol.SystemPayload{Sender: "sim", Level: "info", Text: "ping"})
	hub.Broadcast(wire)

	for i, conn := range []*websocket.Conn{c1, c2} {
		msg := readMessage(t, conn)
		if msg.Type != protocol.MsgSystem {
			t.Errorf("client %d got type %q", i, msg.Type)
		}
	}
}
