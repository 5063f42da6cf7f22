package server

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"go.uber.org/atomic"

	"github.com/lookback/swifter/metrics"
	"github.com/lookback/swifter/request"
	"github.com/lookback/swifter/response"
)

// State is the lifecycle state of a Server. Exactly one state holds at a
// time; transitions happen only along
// Stopped → Starting → Running → Stopping → Stopped.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Priority is the advisory scheduling priority requested for connection
// workers. Goroutines carry no OS priority, so the value is recorded and
// logged but has no scheduling effect; it is kept for API compatibility
// with embedders that configure it.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Parser reads requests off a connection. Implementations must return
// io.EOF (or any other error) when no further request can be read; the
// worker treats every read failure as the end of that connection.
type Parser interface {
	ReadRequest(br *bufio.Reader) (*request.Request, error)
	SupportsKeepAlive(h *request.Header) bool
}

// Handler produces the response for one dispatched request.
type Handler func(*request.Request) *response.Response

// Router resolves a request to route parameters and a handler. Dispatch
// must always yield a usable handler: an unmatched route resolves to a
// well-formed 404 handler, never to an error.
type Router interface {
	Dispatch(req *request.Request) (request.Params, Handler)
}

// Config carries the server's construction parameters.
type Config struct {
	// Port to bind; 0 selects DefaultPort.
	Port uint16

	// ForceIPv4 restricts the listener to the IPv4 family.
	ForceIPv4 bool

	// Priority is the advisory worker scheduling priority.
	Priority Priority

	Parser Parser
	Router Router

	// Log receives lifecycle events and connection-local write failures.
	Log *slog.Logger

	// Spawn schedules a connection worker. Defaults to `go fn()`; a
	// bounded pool can be substituted here without touching the
	// protocol logic.
	Spawn func(fn func())
}

// DefaultPort is bound when Config.Port is left zero.
const DefaultPort uint16 = 8080

// BindError reports that the listening socket could not be created.
type BindError struct {
	Port uint16
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// ErrNotListening is returned by listener introspection when the server
// has no live listening socket.
var ErrNotListening = errors.New("server is not listening")

// Server is the connection-handling core. Create one with New, then
// Start/Stop it; both are safe for concurrent use.
type Server struct {
	cfg   Config
	log   *slog.Logger
	state atomic.Int32
	spawn func(func())

	parser Parser
	router Router

	// mu guards the listener handle, which is owned exclusively by
	// Start and Stop.
	mu sync.Mutex
	ln net.Listener

	conns *connRegistry
}

// New builds a stopped server from cfg. Parser and Router are required.
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	s := &Server{
		cfg:    cfg,
		log:    cfg.Log,
		spawn:  cfg.Spawn,
		parser: cfg.Parser,
		router: cfg.Router,
		conns:  newConnRegistry(),
	}
	if s.spawn == nil {
		s.spawn = func(fn func()) { go fn() }
	}
	return s
}

// Start binds the listening socket and launches the accept loop in the
// background. It returns a *BindError when the socket cannot be created,
// leaving the server fully stopped. Calling Start while the server is
// already starting, running, or stopping is a silent no-op.
func (s *Server) Start() error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return nil
	}

	network := "tcp"
	if s.cfg.ForceIPv4 {
		network = "tcp4"
	}
	ln, err := net.Listen(network, fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		s.state.CompareAndSwap(int32(StateStarting), int32(StateStopped))
		return &BindError{Port: s.cfg.Port, Err: err}
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go s.acceptLoop(ln)
	s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	s.log.Info("server started",
		"addr", ln.Addr().String(),
		"ipv4Only", s.cfg.ForceIPv4,
		"priority", s.cfg.Priority.String(),
	)
	return nil
}

// Stop half-closes every live connection so their blocked reads fail,
// clears the registry, and releases the listening socket. It does not wait
// for the workers to unwind: each worker observes the failed read or the
// lifecycle state and exits on its own, closing its socket as it goes.
// Calling Stop while the server is not running is a silent no-op.
func (s *Server) Stop() {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}

	s.conns.shutdownAll()

	s.mu.Lock()
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	s.mu.Unlock()

	s.state.CompareAndSwap(int32(StateStopping), int32(StateStopped))
	s.log.Info("server stopped")
}

// Operating reports whether the server is in the Running state. Workers
// consult it on every loop iteration.
func (s *Server) Operating() bool {
	return s.State() == StateRunning
}

// State returns a snapshot of the lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Port returns the port of the live listening socket.
func (s *Server) Port() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return 0, ErrNotListening
	}
	return s.ln.Addr().(*net.TCPAddr).Port, nil
}

// IsIPv4 reports whether the live listening socket is bound to an IPv4
// address.
func (s *Server) IsIPv4() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return false, ErrNotListening
	}
	return s.ln.Addr().(*net.TCPAddr).IP.To4() != nil, nil
}

// ConnCount returns the number of connections currently tracked by the
// registry.
func (s *Server) ConnCount() int {
	return s.conns.len()
}

// acceptLoop accepts connections until the listener fails, which includes
// the close induced by Stop. Each accepted connection is registered and
// handed to its own worker; the loop never waits on a worker. An accept
// failure means no further connections will arrive, so the loop triggers
// Stop as a safety net, but only while ln is still the live listener:
// the loop of a closed generation must never tear down a restarted
// server.
func (s *Server) acceptLoop(ln net.Listener) {
	defer func() {
		s.mu.Lock()
		live := s.ln == ln
		s.mu.Unlock()
		if live {
			s.Stop()
		}
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error("accept failed", "err", err)
			}
			return
		}
		if !s.Operating() {
			// Lost the race with Stop: never register or serve.
			_ = conn.Close()
			continue
		}
		metrics.ConnectionsAccepted.Inc()
		s.conns.add(conn)
		c := conn
		s.spawn(func() { s.serveConn(c) })
	}
}
