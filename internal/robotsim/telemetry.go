package robotsim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/protocol"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Telemetry periodically broadcasts system load as system messages, the way
// the real robot reports its health to connected tablets.
type Telemetry struct {
	hub      *Hub
	sender   string
	interval time.Duration
}

func NewTelemetry(hub *Hub, sender string, interval time.Duration) *Telemetry {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Telemetry{hub: hub, sender: sender, interval: interval}
}

func (t *Telemetry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.broadcastSample()
			}
		}
	}()
}

func (t *Telemetry) broadcastSample() {
	if t.hub.ClientCount() == 0 {
		return
	}

	detail := map[string]any{}
	var cpuPct, memPct float64
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		cpuPct = pcts[0]
		detail["cpu_percent"] = cpuPct
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		memPct = vm.UsedPercent
		detail["mem_percent"] = memPct
	}

	wire, err := protocol.Encode(protocol.MsgSystem, protocol.SystemPayload{
		Sender: t.sender,
		Level:  "info",
		Text:   fmt.Sprintf("telemetry: cpu %.1f%% mem %.1f%%", cpuPct, memPct),
		Detail: detail,
	})
	if err != nil {
		log.Printf("telemetry encode error: %v", err)
		return
	}
	t.hub.Broadcast(wire)
}
