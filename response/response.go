// Package response defines the HTTP response model the server core writes
// to the wire: status, ordered headers, and a body that is either a sized
// byte payload, a whole file, a stream of unknown length, or a protocol
// upgrade handing the raw connection to a session procedure.
package response

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
)

// UnknownLength marks a streamed body with no frame boundary. Responses of
// unknown length are terminated by closing the connection and therefore can
// never negotiate keep-alive.
const UnknownLength int64 = -1

// Field is a single response header name/value pair. Order and duplicates
// are preserved exactly as declared.
type Field struct {
	Name  string
	Value string
}

// Response describes one HTTP response to be written onto a connection.
type Response struct {
	Status int
	// Reason is the status line reason phrase; when empty the standard
	// phrase for Status is used.
	Reason string
	Header []Field

	// ContentLength is the body size in bytes, or UnknownLength for a
	// streamed body with no declared size.
	ContentLength int64

	// Body, when non-nil, emits the body through the sink bound to the
	// connection. It is invoked after the header block has been written.
	Body func(Sink) error

	// Session, when non-nil, marks a protocol upgrade: after the response
	// head is written the server hands the raw connection to this
	// procedure and never resumes the HTTP loop on it.
	Session func(net.Conn)
}

// AddHeader appends a header field, preserving declaration order.
func (r *Response) AddHeader(name, value string) {
	r.Header = append(r.Header, Field{Name: name, Value: value})
}

// NewStatus builds an empty response carrying only a status code.
func NewStatus(status int) *Response {
	return &Response{Status: status, ContentLength: 0}
}

// NewText builds a plain-text response of known length.
func NewText(status int, body string) *Response {
	return NewBytes(status, "text/plain", []byte(body))
}

// NewBytes builds a response around a byte payload of known length.
func NewBytes(status int, contentType string, body []byte) *Response {
	r := &Response{
		Status:        status,
		ContentLength: int64(len(body)),
		Body: func(s Sink) error {
			_, err := s.Write(body)
			return err
		},
	}
	if contentType != "" {
		r.AddHeader("Content-Type", contentType)
	}
	return r
}

// NewJSON marshals v into a JSON response. A marshalling failure degrades
// to a 500 so the worker always has a well-formed response to write.
func NewJSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return NewText(http.StatusInternalServerError, "json encoding failed\n")
	}
	return NewBytes(status, "application/json", body)
}

// NewStream builds a response whose body is produced incrementally and has
// no declared length. The connection is closed after the body writer
// returns, which is what frames the body for the client.
func NewStream(status int, body func(Sink) error) *Response {
	return &Response{Status: status, ContentLength: UnknownLength, Body: body}
}

// NewFile builds a response that transfers f in full, using the platform
// zero-copy path where the connection supports it.
func NewFile(status int, contentType string, f *os.File) (*Response, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r := &Response{
		Status:        status,
		ContentLength: info.Size(),
		Body: func(s Sink) error {
			_, err := s.WriteFile(f)
			return err
		},
	}
	if contentType != "" {
		r.AddHeader("Content-Type", contentType)
	}
	return r, nil
}

// NewSession builds an upgrade response. The status line and any headers
// added by the caller are written as a normal head, then the connection is
// handed to session exactly once.
func NewSession(status int, session func(net.Conn)) *Response {
	return &Response{Status: status, ContentLength: UnknownLength, Session: session}
}
