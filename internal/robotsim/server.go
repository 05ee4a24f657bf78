// Package robotsim is a development stand-in for the robot backend: it
// advertises itself over mDNS, serves the bidirectional WebSocket endpoint
// and answers with canned replies, so the companion client can be exercised
// without hardware on the network.
package robotsim

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/protocol"
	"github.com/gorilla/websocket"
)

type Server struct {
	cfg       config.SimConfig
	hub       *Hub
	startedAt time.Time

	mu       sync.Mutex
	settings map[string]any
}

func NewServer(cfg config.SimConfig, hub *Hub) *Server {
	return &Server{
		cfg:       cfg,
		hub:       hub,
		startedAt: time.Now(),
		settings: map[string]any{
			"volume":          70,
			"tts_voice":       "default",
			"autonomous_mode": false,
		},
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws_bidirectional", s.handleWS)
	mux.HandleFunc("/status", s.handleStatus)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	// dev tool on a trusted LAN, any origin is fine
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)
	c := s.hub.AddClient(conn)

	go func() {
		defer func() {
			s.hub.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			s.handleMessage(c, string(data))
		}
	}()
}

func (s *Server) handleMessage(c *client, raw string) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		log.Printf("invalid client message: %v", err)
		s.sendSystem(c, "error", "invalid message: "+err.Error())
		return
	}

	switch msg.Type {
	case protocol.MsgInput:
		var p protocol.InputPayload
		if err := protocol.DecodePayload(msg, &p); err != nil {
			s.sendSystem(c, "error", "bad input payload")
			return
		}
		s.handleInput(p)

	case protocol.MsgConfig:
		var p protocol.ConfigPayload
		if err := protocol.DecodePayload(msg, &p); err != nil {
			s.sendSystem(c, "error", "bad config payload")
			return
		}
		s.handleConfig(p)

	case protocol.MsgGamepadState:
		// accepted but the simulator has no motors to drive

	default:
		s.sendSystem(c, "warning", fmt.Sprintf("unhandled message type %q", msg.Type))
	}
}

// handleInput echoes the user text to every client and follows up with a
// canned robot reply, mirroring the real backend's chat flow.
func (s *Server) handleInput(p protocol.InputPayload) {
	source := p.Source
	if source == "" {
		source = "unknown"
	}
	if echo, err := protocol.Encode(protocol.MsgInput, protocol.InputPayload{Text: p.Text, Source: source}); err == nil {
		s.hub.Broadcast(echo)
	}

	reply := fmt.Sprintf("(sim) I heard: %s", p.Text)
	if out, err := protocol.Encode(protocol.MsgOutput, protocol.OutputPayload{
		Sender:              s.cfg.RobotName,
		Text:                reply,
		OriginalInputSource: source,
	}); err == nil {
		s.hub.Broadcast(out)
	}
}

func (s *Server) handleConfig(p protocol.ConfigPayload) {
	s.mu.Lock()
	_, known := s.settings[p.ConfigItem]
	if known {
		s.settings[p.ConfigItem] = p.Value
	}
	current := s.settings[p.ConfigItem]
	snapshot := make(map[string]any, len(s.settings))
	for k, v := range s.settings {
		snapshot[k] = v
	}
	s.mu.Unlock()

	text := fmt.Sprintf("%s updated", p.ConfigItem)
	if !known {
		text = fmt.Sprintf("unknown setting %q", p.ConfigItem)
	}
	if conf, err := protocol.Encode(protocol.MsgConfigConfirmation, protocol.ConfigConfirmationPayload{
		ConfigItem:       p.ConfigItem,
		Success:          known,
		CurrentValue:     current,
		MessageToDisplay: text,
	}); err == nil {
		s.hub.Broadcast(conf)
	}
	if !known {
		return
	}
	if cur, err := protocol.Encode(protocol.MsgCurrentConfiguration, protocol.CurrentConfigurationPayload{Settings: snapshot}); err == nil {
		s.hub.Broadcast(cur)
	}
}

func (s *Server) sendSystem(c *client, level, text string) {
	wire, err := protocol.Encode(protocol.MsgSystem, protocol.SystemPayload{
		Sender: s.cfg.RobotName,
		Level:  level,
		Text:   text,
	})
	if err != nil {
		return
	}
	s.hub.sendTo(c, wire)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":                   "ok",
		"robot_name":               s.cfg.RobotName,
		"uptime_seconds":           int(time.Since(s.startedAt).Seconds()),
		"active_websocket_clients": s.hub.ClientCount(),
	})
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Simulator listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
