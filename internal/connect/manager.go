package connect

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Config holds the knobs for one Manager.
type Config struct {
	// Discovery match filter.
	ServiceType string
	Domain      string
	NamePrefix  string

	// WebSocket endpoint. The URL is Scheme://host:port/Path.
	Scheme string
	Path   string

	DialTimeout    time.Duration
	DiscoveryRetry time.Duration // fixed, uncounted delay for discovery-phase failures
	Backoff        Backoff

	// SubscriberBuffer is the per-subscriber channel capacity for inbound
	// messages and state transitions. A subscriber that falls behind misses
	// events rather than blocking the Manager.
	SubscriberBuffer int
}

// DefaultConfig returns the settings the Umebot backend advertises with.
func DefaultConfig() Config {
	return Config{
		ServiceType:    "_umebotlogics._tcp",
		Domain:         "local.",
		NamePrefix:     "UmebotLogics",
		Scheme:         "ws",
		Path:           "/ws_bidirectional",
		DialTimeout:    8 * time.Second,
		DiscoveryRetry: 3 * time.Second,
		Backoff: Backoff{
			Initial:     2 * time.Second,
			Multiplier:  2.0,
			Max:         15 * time.Second,
			MaxAttempts: 5,
		},
		SubscriberBuffer: 64,
	}
}

// Manager is the connectivity orchestrator. It discovers the backend on the
// local network, resolves it, keeps one authoritative WebSocket session to
// it, and recovers from failures with bounded backed-off retries before
// falling back to rediscovery.
//
// All state transitions run on a single event-loop goroutine fed by an
// inbox channel; discovery, resolution and stream I/O report back as tagged
// events. Events tagged with a superseded generation or session id are
// discarded at the loop entry, which is what makes overlapping attempts
// race-free.
type Manager struct {
	cfg  Config
	disc Discoverer
	res  Resolver
	dial Dialer

	inbox chan any

	mu        sync.Mutex
	state     State
	curSess   *session // non-nil only while Connected, read by Send
	endpoint  string   // host:port of the current record, set once resolved
	msgSubs   map[chan string]bool
	stateSubs map[chan State]bool

	// Everything below is owned by the run loop and never touched elsewhere.
	gen        uint64 // discovery/resolve attempt generation
	sessSeq    uint64 // session identity source
	sessID     uint64 // id of the authoritative session
	sess       *session
	current    *ServiceRecord
	attempts   int
	discCancel context.CancelFunc
	retryTimer *time.Timer // backoff retry, counted
	discTimer  *time.Timer // discovery retry, fixed delay, uncounted
}

// New creates a Manager wired to real mDNS discovery and a real WebSocket
// dialer.
func New(cfg Config) *Manager {
	mdns := &MDNS{ServiceType: cfg.ServiceType, Domain: cfg.Domain, ResolveTimeout: cfg.DialTimeout}
	return NewManager(cfg, mdns, mdns, NewDialer(cfg.DialTimeout))
}

// NewManager creates a Manager with explicit collaborators. Tests use this
// to substitute fakes.
func NewManager(cfg Config, disc Discoverer, res Resolver, dial Dialer) *Manager {
	m := &Manager{
		cfg:       cfg,
		disc:      disc,
		res:       res,
		dial:      dial,
		inbox:     make(chan any, 32),
		state:     StateIdle,
		msgSubs:   make(map[chan string]bool),
		stateSubs: make(map[chan State]bool),
	}
	go m.run()
	return m
}

// commands and loop events

type cmdStart struct{ done chan struct{} }
type cmdStop struct{ done chan struct{} }

type discFound struct {
	gen uint64
	rec ServiceRecord
}

type discLost struct {
	gen  uint64
	name string
}

type discFailed struct {
	gen uint64
	err error
}

type discRetry struct{ gen uint64 }

type resolveResult struct {
	gen uint64
	rec ServiceRecord
	err error
}

type retryConnect struct{ gen uint64 }

// Start begins discovery. It is idempotent and returns once the state
// transition has been applied.
func (m *Manager) Start() {
	done := make(chan struct{})
	m.inbox <- cmdStart{done: done}
	<-done
}

// Stop cancels, in order, any pending retry timer, the discovery scan and
// the active session, then sets the state to Idle. Idempotent; once it
// returns, no further state transitions or messages are emitted until the
// next Start.
func (m *Manager) Stop() {
	done := make(chan struct{})
	m.inbox <- cmdStop{done: done}
	<-done
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Endpoint returns the host:port of the current endpoint, or an empty
// string while no record is resolved.
func (m *Manager) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// States subscribes to state transitions. The current state is delivered
// immediately, so late observers still see the last value. The returned
// cancel func releases the subscription.
func (m *Manager) States() (<-chan State, func()) {
	ch := make(chan State, m.subBuffer())
	m.mu.Lock()
	ch <- m.state
	m.stateSubs[ch] = true
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if m.stateSubs[ch] {
			delete(m.stateSubs, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// Messages subscribes to inbound text payloads from the backend. There is
// no replay: a late subscriber does not see earlier messages.
func (m *Manager) Messages() (<-chan string, func()) {
	ch := make(chan string, m.subBuffer())
	m.mu.Lock()
	m.msgSubs[ch] = true
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if m.msgSubs[ch] {
			delete(m.msgSubs, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// Send writes one opaque text message on the current session. It reports
// whether the transport accepted the write. While not connected it is a
// silent no-op: stray sends never trigger recovery on their own, only a
// transport-reported failure does.
func (m *Manager) Send(text string) bool {
	m.mu.Lock()
	sess := m.curSess
	st := m.state
	m.mu.Unlock()
	if st != StateConnected || sess == nil {
		return false
	}
	return sess.send(text)
}

func (m *Manager) subBuffer() int {
	if m.cfg.SubscriberBuffer > 0 {
		return m.cfg.SubscriberBuffer
	}
	return 64
}

// run is the single-writer event loop. Nothing else mutates machine state.
func (m *Manager) run() {
	for ev := range m.inbox {
		switch ev := ev.(type) {
		case cmdStart:
			m.handleStart()
			close(ev.done)
		case cmdStop:
			m.handleStop()
			close(ev.done)
		case discFound:
			m.handleFound(ev)
		case discLost:
			m.handleLost(ev)
		case discFailed:
			m.handleDiscFailed(ev)
		case discRetry:
			m.handleDiscRetry(ev)
		case resolveResult:
			m.handleResolved(ev)
		case retryConnect:
			m.handleRetryConnect(ev)
		case sessionEvent:
			m.handleSession(ev)
		}
	}
}

func (m *Manager) handleStart() {
	if m.State() != StateIdle {
		return
	}
	m.startDiscovery()
}

func (m *Manager) handleStop() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.discTimer != nil {
		m.discTimer.Stop()
		m.discTimer = nil
	}
	m.stopDiscovery()
	if m.sess != nil {
		m.setCurSess(nil)
		m.sess.close()
		m.sess = nil
	}
	// Supersede every in-flight callback so nothing fired before this point
	// can reach the machine afterwards.
	m.gen++
	m.sessID = 0
	m.current = nil
	m.attempts = 0
	m.setEndpoint("")
	m.setState(StateIdle)
}

// startDiscovery begins (or re-enters) the discovery phase. The scan keeps
// running through ServiceFound/Resolved/Connecting so lost records can
// cancel an attempt; it is shut down once a session is connected.
func (m *Manager) startDiscovery() {
	m.setState(StateDiscovering)
	if m.discCancel != nil {
		return // scan already active
	}

	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.discCancel = cancel

	events := make(chan DiscoveryEvent, 16)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if ev.Lost {
					m.inbox <- discLost{gen: gen, name: ev.Record.Name}
				} else {
					m.inbox <- discFound{gen: gen, rec: ev.Record}
				}
			}
		}
	}()
	go func() {
		if err := m.disc.Browse(ctx, events); err != nil && ctx.Err() == nil {
			m.inbox <- discFailed{gen: gen, err: err}
		}
	}()
}

func (m *Manager) stopDiscovery() {
	if m.discCancel != nil {
		m.discCancel()
		m.discCancel = nil
	}
}

func (m *Manager) handleDiscFailed(ev discFailed) {
	if ev.gen != m.gen {
		return
	}
	log.Printf("discovery failed: %v (retry in %v)", ev.err, m.cfg.DiscoveryRetry)
	m.stopDiscovery()
	gen := m.gen
	m.discTimer = time.AfterFunc(m.cfg.DiscoveryRetry, func() {
		m.inbox <- discRetry{gen: gen}
	})
}

func (m *Manager) handleDiscRetry(ev discRetry) {
	if ev.gen != m.gen {
		return
	}
	m.discTimer = nil
	if m.State() != StateDiscovering || m.discCancel != nil {
		return
	}
	m.startDiscovery()
}

func (m *Manager) handleFound(ev discFound) {
	if ev.gen != m.gen {
		return
	}
	if m.current != nil {
		// one record at a time, first found wins
		return
	}
	if !strings.HasPrefix(ev.rec.Name, m.cfg.NamePrefix) {
		return
	}

	rec := ev.rec
	m.current = &rec
	m.setState(StateServiceFound)
	log.Printf("service found: %s", rec.Name)

	if rec.Resolved {
		// the browse response already carried an address
		m.handleResolved(resolveResult{gen: m.gen, rec: rec})
		return
	}
	gen := m.gen
	go func() {
		resolved, err := m.res.Resolve(context.Background(), rec)
		m.inbox <- resolveResult{gen: gen, rec: resolved, err: err}
	}()
}

func (m *Manager) handleResolved(ev resolveResult) {
	if ev.gen != m.gen {
		return
	}
	if m.current == nil || m.current.Name != ev.rec.Name {
		return
	}
	if ev.err != nil || !ev.rec.Valid() {
		// resolution failures are part of the discovery phase: uncounted,
		// the record is simply discarded
		log.Printf("resolve %s failed: %v", ev.rec.Name, ev.err)
		m.current = nil
		m.startDiscovery()
		return
	}

	rec := ev.rec
	rec.Resolved = true
	m.current = &rec
	m.attempts = 0
	m.setEndpoint(rec.Addr())
	m.setState(StateResolved)
	log.Printf("resolved %s to %s", rec.Name, rec.Addr())
	m.connect()
}

func (m *Manager) handleLost(ev discLost) {
	if ev.gen != m.gen {
		return
	}
	if m.current == nil || m.current.Name != ev.name {
		return
	}
	log.Printf("service lost: %s", ev.name)
	m.abandon()
}

// connect opens a new session against the current record. The previous
// session, if any, is already torn down by the caller.
func (m *Manager) connect() {
	m.sessSeq++
	m.sessID = m.sessSeq
	url := fmt.Sprintf("%s://%s%s", m.cfg.Scheme, m.current.Addr(), m.cfg.Path)
	s := newSession(m.sessID, url, m.dial, func(ev sessionEvent) { m.inbox <- ev })
	m.sess = s
	m.setState(StateConnecting)
	go s.open()
}

func (m *Manager) handleSession(ev sessionEvent) {
	if ev.id != m.sessID || m.sess == nil {
		// superseded session; its teardown already happened when it was
		// replaced, so the event is simply dropped
		return
	}

	switch ev.kind {
	case sessionOpened:
		m.attempts = 0
		m.setCurSess(m.sess)
		m.setState(StateConnected)
		// no need to keep scanning while a session is authoritative
		m.stopDiscovery()
		log.Printf("connected to %s", m.current.Addr())

	case sessionMessage:
		m.broadcast(ev.text)

	case sessionClosed, sessionFailed:
		m.setCurSess(nil)
		m.sess.close()
		m.sess = nil
		m.sessID = 0
		if m.current == nil {
			return
		}
		m.attempts++
		if m.cfg.Backoff.Exhausted(m.attempts) {
			log.Printf("endpoint %s abandoned after %d attempts", m.current.Addr(), m.attempts)
			m.abandon()
			return
		}
		delay := m.cfg.Backoff.Delay(m.attempts)
		log.Printf("session down (%v), retry %d/%d in %v", ev.err, m.attempts, m.cfg.Backoff.MaxAttempts, delay)
		m.setState(StateReconnecting)
		gen := m.gen
		m.retryTimer = time.AfterFunc(delay, func() {
			m.inbox <- retryConnect{gen: gen}
		})
	}
}

func (m *Manager) handleRetryConnect(ev retryConnect) {
	if ev.gen != m.gen {
		return
	}
	m.retryTimer = nil
	if m.State() != StateReconnecting || m.current == nil {
		return
	}
	m.connect()
}

// abandon discards the current record and starts a fresh discovery cycle.
func (m *Manager) abandon() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.sess != nil {
		m.setCurSess(nil)
		m.sess.close()
		m.sess = nil
		m.sessID = 0
	}
	m.current = nil
	m.attempts = 0
	m.setEndpoint("")
	m.setState(StateDisconnected)
	m.stopDiscovery()
	m.startDiscovery()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state != s {
		m.state = s
		for ch := range m.stateSubs {
			select {
			case ch <- s:
			default:
				// subscriber fell behind, it misses this transition
			}
		}
	}
	m.mu.Unlock()
}

func (m *Manager) setEndpoint(addr string) {
	m.mu.Lock()
	m.endpoint = addr
	m.mu.Unlock()
}

func (m *Manager) setCurSess(s *session) {
	m.mu.Lock()
	m.curSess = s
	m.mu.Unlock()
}

func (m *Manager) broadcast(text string) {
	m.mu.Lock()
	for ch := range m.msgSubs {
		select {
		case ch <- text:
		default:
			// bounded buffer per subscriber, drop rather than block
		}
	}
	m.mu.Unlock()
}
