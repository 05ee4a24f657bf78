package connect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// DiscoveryEvent reports one service appearing on or disappearing from the
// local network. Lost events carry the record name only.
type DiscoveryEvent struct {
	Lost   bool
	Record ServiceRecord
}

// Discoverer scans the local network for advertised backend instances.
// Browse blocks until ctx is cancelled, delivering events on the given
// channel. It returns a non-nil error only when the scan could not start.
// The Discoverer never closes the events channel.
type Discoverer interface {
	Browse(ctx context.Context, events chan<- DiscoveryEvent) error
}

// Resolver turns a found record into one with a connectable host and port.
type Resolver interface {
	Resolve(ctx context.Context, rec ServiceRecord) (ServiceRecord, error)
}

// MDNS discovers backends via multicast DNS (zeroconf/Bonjour). It
// implements both Discoverer and Resolver.
type MDNS struct {
	ServiceType    string // e.g. "_umebotlogics._tcp"
	Domain         string // e.g. "local."
	ResolveTimeout time.Duration
}

func (m *MDNS) domain() string {
	if m.Domain == "" {
		return "local."
	}
	return m.Domain
}

// Browse scans for instances of the configured service type. Goodbye
// packets (TTL 0) are reported as lost events.
func (m *MDNS) Browse(ctx context.Context, events chan<- DiscoveryEvent) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("mdns resolver: %w", err)
	}

	// zeroconf closes the entry channel once ctx is done.
	entries := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(ctx, m.ServiceType, m.domain(), entries); err != nil {
		return fmt.Errorf("mdns browse: %w", err)
	}

	for entry := range entries {
		select {
		case events <- entryEvent(entry, m.ServiceType):
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// Resolve looks up the address of one named instance. Browse responses often
// carry addresses already; this is the fallback for the ones that do not.
func (m *MDNS) Resolve(ctx context.Context, rec ServiceRecord) (ServiceRecord, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return rec, fmt.Errorf("mdns resolver: %w", err)
	}

	timeout := m.ResolveTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 4)
	if err := resolver.Lookup(lctx, rec.Name, m.ServiceType, m.domain(), entries); err != nil {
		return rec, fmt.Errorf("mdns lookup %q: %w", rec.Name, err)
	}

	for entry := range entries {
		if entry.Instance != rec.Name || entry.TTL == 0 {
			continue
		}
		if host := entryHost(entry); host != "" && entry.Port > 0 {
			rec.Host = host
			rec.Port = entry.Port
			rec.Resolved = true
			return rec, nil
		}
	}
	return rec, fmt.Errorf("mdns lookup %q: no address", rec.Name)
}

// entryEvent converts a zeroconf entry into a DiscoveryEvent.
func entryEvent(entry *zeroconf.ServiceEntry, serviceType string) DiscoveryEvent {
	if entry.TTL == 0 {
		return DiscoveryEvent{Lost: true, Record: ServiceRecord{Name: entry.Instance, Type: serviceType}}
	}
	rec := ServiceRecord{
		Name: entry.Instance,
		Type: serviceType,
		Host: entryHost(entry),
		Port: entry.Port,
	}
	rec.Resolved = rec.Valid()
	return DiscoveryEvent{Record: rec}
}

// entryHost picks the most useful address from an entry: IPv4 first, then
// IPv6, then the advertised hostname.
func entryHost(entry *zeroconf.ServiceEntry) string {
	if len(entry.AddrIPv4) > 0 {
		return entry.AddrIPv4[0].String()
	}
	if len(entry.AddrIPv6) > 0 {
		return entry.AddrIPv6[0].String()
	}
	return strings.TrimSuffix(entry.HostName, ".")
}
