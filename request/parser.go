package request

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

const (
	// maxHeadBytes caps the request line plus header block.
	maxHeadBytes = 1 << 20
	// maxBodyBytes caps a declared Content-Length body.
	maxBodyBytes = 8 << 20
)

// ParseError reports a malformed request. It is distinct from the I/O
// errors ReadRequest passes through when the peer disappears mid-read.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse request: " + e.Reason
}

// Parser reads HTTP/1.1 requests from a buffered connection reader.
// The zero value is ready to use.
type Parser struct{}

// NewParser returns a parser for the server core's Parser seam.
func NewParser() *Parser {
	return &Parser{}
}

// ReadRequest reads one request from br: request line, header block, and a
// body when Content-Length declares one. A cleanly closed connection
// surfaces as io.EOF; malformed input surfaces as *ParseError.
func (p *Parser) ReadRequest(br *bufio.Reader) (*Request, error) {
	line, n, err := readLine(br, maxHeadBytes)
	if err != nil {
		return nil, err
	}
	remaining := maxHeadBytes - n

	method, rest, ok := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok || !ok2 || method == "" || target == "" {
		return nil, &ParseError{Reason: "malformed request line " + strconv.Quote(line)}
	}
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		return nil, &ParseError{Reason: "unsupported protocol " + strconv.Quote(proto)}
	}

	req := &Request{
		Method: method,
		Target: target,
		Proto:  proto,
		Params: Params{},
	}

	for {
		line, n, err := readLine(br, remaining)
		if err != nil {
			return nil, err
		}
		remaining -= n
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, &ParseError{Reason: "malformed header line " + strconv.Quote(line)}
		}
		req.Header.Add(name, strings.TrimSpace(value))
	}

	if cl := req.Header.Get("Content-Length"); cl != "" {
		length, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || length < 0 {
			return nil, &ParseError{Reason: "invalid Content-Length " + strconv.Quote(cl)}
		}
		if length > maxBodyBytes {
			return nil, &ParseError{Reason: "body exceeds limit"}
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, err
		}
		req.Body = body
	}

	return req, nil
}

// SupportsKeepAlive reports whether the request's headers ask for the
// connection to be reused. Negotiation is header-only: an explicit
// "keep-alive" token opts in, "close" opts out, absence means close.
func (p *Parser) SupportsKeepAlive(h *Header) bool {
	for _, token := range strings.Split(h.Get("Connection"), ",") {
		switch strings.ToLower(strings.TrimSpace(token)) {
		case "keep-alive":
			return true
		case "close":
			return false
		}
	}
	return false
}

// readLine reads one CRLF-terminated line of at most limit raw bytes,
// returning it without the line ending plus the number of bytes consumed.
// The read itself is bounded: an oversized line is rejected as soon as the
// limit is crossed, overshooting by at most one reader buffer, instead of
// being accumulated in full first. An EOF mid-line is reported as
// io.ErrUnexpectedEOF; an EOF before any byte passes through as io.EOF.
func readLine(br *bufio.Reader, limit int) (string, int, error) {
	var line []byte
	n := 0
	for {
		frag, err := br.ReadSlice('\n')
		n += len(frag)
		if n > limit {
			return "", n, &ParseError{Reason: "request head exceeds limit"}
		}
		line = append(line, frag...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			if len(line) == 0 {
				return "", n, io.EOF
			}
			return "", n, io.ErrUnexpectedEOF
		}
		return "", n, err
	}
	s := strings.TrimSuffix(string(line), "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, n, nil
}
