// Package testutil provides raw-socket helpers for wire-level tests
// against a running server core: it deliberately avoids net/http's client
// so tests can assert exact bytes and header order on the wire.
package testutil

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// FreePort asks the kernel for an ephemeral port and releases it again,
// for tests that need to know a port before binding it.
func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// DialWithRetry dials addr until it succeeds or the timeout elapses,
// bridging the gap between Start returning and the accept loop running.
func DialWithRetry(addr string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// RawRequest builds the bytes of a simple request with optional extra
// header lines ("Name: value").
func RawRequest(method, target string, headers ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, target)
	b.WriteString("Host: localhost\r\n")
	for _, h := range headers {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

// WireResponse is one HTTP response as read off the socket, preserving
// header order for exact framing assertions.
type WireResponse struct {
	Proto  string
	Status int
	Reason string

	// HeaderOrder lists header names in wire order.
	HeaderOrder []string
	// Headers maps each name to its first value.
	Headers map[string]string

	Body []byte
}

// HasHeader reports whether name appeared on the wire (case-insensitive).
func (r *WireResponse) HasHeader(name string) bool {
	for _, n := range r.HeaderOrder {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// ReadResponse reads one response from br. A body is read per
// Content-Length when declared; otherwise the body is everything up to
// EOF (connection-close framing).
func ReadResponse(br *bufio.Reader) (*WireResponse, error) {
	statusLine, err := readCRLFLine(br)
	if err != nil {
		return nil, err
	}
	proto, rest, ok := strings.Cut(statusLine, " ")
	code, reason, ok2 := strings.Cut(rest, " ")
	if !ok || !ok2 {
		return nil, fmt.Errorf("malformed status line %q", statusLine)
	}
	status, err := strconv.Atoi(code)
	if err != nil {
		return nil, fmt.Errorf("malformed status code in %q", statusLine)
	}

	resp := &WireResponse{
		Proto:   proto,
		Status:  status,
		Reason:  reason,
		Headers: map[string]string{},
	}

	for {
		line, err := readCRLFLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		value = strings.TrimSpace(value)
		resp.HeaderOrder = append(resp.HeaderOrder, name)
		if _, seen := resp.Headers[name]; !seen {
			resp.Headers[name] = value
		}
	}

	if cl, ok := resp.Headers["Content-Length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil {
			return nil, fmt.Errorf("malformed Content-Length %q", cl)
		}
		resp.Body = make([]byte, n)
		if _, err := io.ReadFull(br, resp.Body); err != nil {
			return nil, err
		}
	} else {
		body, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		resp.Body = body
	}

	return resp, nil
}

func readCRLFLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}
