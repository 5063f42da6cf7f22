// Package request defines the parsed HTTP request model and the HTTP/1.1
// parser the server core consumes through its Parser interface.
package request

// Params holds route parameters extracted by the router after dispatch.
type Params map[string]string

// Request is one parsed HTTP request read off a connection.
type Request struct {
	Method string
	Target string
	Proto  string
	Header Header
	Body   []byte

	// RemoteAddr is the peer address, best-effort: empty when the lookup
	// on the underlying socket fails.
	RemoteAddr string

	// Params is filled in by the router once a route has matched.
	Params Params
}
