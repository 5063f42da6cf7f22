// Package server is the connection-handling core of an embeddable HTTP
// server: a TCP listener, an accept loop spawning one worker per
// connection, a mutation-serialized registry of live connections used for
// coordinated shutdown, and a lifecycle state machine gating it all.
//
// The core delegates everything stateless to collaborators behind narrow
// interfaces: a Parser turns connection bytes into requests, a Router
// resolves a request to a handler producing a response. The core itself
// never parses bytes and never matches routes.
//
// # Lifecycle
//
// A server moves Stopped → Starting → Running → Stopping → Stopped, and
// only along those edges. Start while Running is a silent no-op; Stop
// while not Running is a silent no-op. Stop half-closes every live
// connection so blocked reads fail, then returns without waiting for the
// workers to unwind. Shutdown is best-effort: "all workers have exited" is
// an eventually-true property, not a postcondition of Stop.
//
// # Concurrency
//
// Concurrency is deliberately unbounded: every accepted connection gets
// its own goroutine, and blocking reads/writes are how per-connection
// backpressure is exerted. The Spawn seam in Config exists so a pooled
// variant can be substituted without touching the protocol logic.
package server
