package connect

import (
	"net"
	"strconv"
)

// ServiceRecord describes one backend instance advertised on the local
// network. A record starts out unresolved (name and type only) and is
// promoted by the Resolver once it carries a reachable host and port.
type ServiceRecord struct {
	Name     string
	Type     string
	Resolved bool
	Host     string
	Port     int
}

// Valid reports whether the record carries a usable address.
func (r ServiceRecord) Valid() bool {
	return r.Host != "" && r.Port > 0
}

// Addr returns the record's host:port, bracketing IPv6 literals.
func (r ServiceRecord) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
