package server

import (
	"net"
	"sync"
	"time"
)

// connRegistry is the set of live client connections, used only to enable
// coordinated shutdown. Every mutation and every enumeration goes through
// one mutex, so shutdown can never race an insert or remove from a worker.
//
// The registry references connections, it never owns them: closing a
// socket is always the owning worker's job. Stop's half-close is the one
// documented exception to worker ownership, and stays a half-close exactly
// so the worker's close cannot become a double close.
type connRegistry struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[net.Conn]struct{})}
}

func (r *connRegistry) add(c net.Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// remove deregisters c. It is a no-op when shutdownAll already cleared the
// set, which is the normal case for workers unwinding after Stop.
func (r *connRegistry) remove(c net.Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

func (r *connRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// shutdownAll half-closes every tracked connection so any blocked read on
// it returns an error, then clears the set. Connections that cannot be
// half-closed get an elapsed read deadline instead, which unblocks a
// pending read the same way.
func (r *connRegistry) shutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		if hc, ok := c.(interface{ CloseRead() error }); ok {
			_ = hc.CloseRead()
		} else {
			_ = c.SetReadDeadline(time.Now())
		}
	}
	clear(r.conns)
}
