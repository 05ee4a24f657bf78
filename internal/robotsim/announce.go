package robotsim

import (
	"fmt"
	"log"

	"github.com/grandcat/zeroconf"
)

// Announcer registers the simulator on the local network so companion
// clients can discover it without any address configuration.
type Announcer struct {
	name   string
	server *zeroconf.Server
}

// Announce advertises the service over mDNS. Call Shutdown before exiting
// so clients receive a goodbye packet instead of waiting for the TTL.
func Announce(instance, serviceType, domain string, port int) (*Announcer, error) {
	server, err := zeroconf.Register(instance, serviceType, domain, port, []string{"txtvers=1"}, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register %q: %w", instance, err)
	}
	log.Printf("mDNS service registered: %s.%s%s port %d", instance, serviceType, domain, port)
	return &Announcer{name: instance, server: server}, nil
}

func (a *Announcer) Shutdown() {
	log.Printf("mDNS service unregistered: %s", a.name)
	a.server.Shutdown()
}
