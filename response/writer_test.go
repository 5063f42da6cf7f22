package response

import (
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeToWire runs Write against one end of an in-memory connection and
// returns the exact bytes the peer would observe.
func writeToWire(t *testing.T, resp *Response, wantKeepAlive bool) (string, bool, error) {
	t.Helper()
	client, srv := net.Pipe()

	var wire []byte
	done := make(chan struct{})
	go func() {
		wire, _ = io.ReadAll(client)
		close(done)
	}()

	keepAlive, err := Write(srv, resp, wantKeepAlive)
	srv.Close()
	<-done
	return string(wire), keepAlive, err
}

func TestWriteKnownLengthKeepAlive(t *testing.T) {
	resp := NewText(http.StatusOK, "ok")

	wire, keepAlive, err := writeToWire(t, resp, true)
	require.NoError(t, err)
	assert.True(t, keepAlive)

	// Fixed framing order: status line, length, keep-alive, declared
	// headers, blank line, body.
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\n"+
			"Content-Length: 2\r\n"+
			"Connection: keep-alive\r\n"+
			"Content-Type: text/plain\r\n"+
			"\r\n"+
			"ok",
		wire)
}

func TestWriteWithoutKeepAliveIntent(t *testing.T) {
	resp := NewText(http.StatusOK, "ok")

	wire, keepAlive, err := writeToWire(t, resp, false)
	require.NoError(t, err)
	assert.False(t, keepAlive)
	assert.NotContains(t, wire, "Connection: keep-alive")
	assert.Contains(t, wire, "Content-Length: 2\r\n")
}

func TestWriteUnknownLengthNeverKeepsAlive(t *testing.T) {
	resp := NewStream(http.StatusOK, func(s Sink) error {
		for i := 0; i < 3; i++ {
			if _, err := s.Write([]byte("chunk")); err != nil {
				return err
			}
		}
		return nil
	})

	// The request may wish for keep-alive; an unframed body wins.
	wire, keepAlive, err := writeToWire(t, resp, true)
	require.NoError(t, err)
	assert.False(t, keepAlive)
	assert.NotContains(t, wire, "Content-Length")
	assert.NotContains(t, wire, "Connection: keep-alive")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\nchunkchunkchunk"))
}

func TestWriteCustomReasonAndDuplicateHeaders(t *testing.T) {
	resp := NewStatus(http.StatusTeapot)
	resp.Reason = "Short And Stout"
	resp.AddHeader("Set-Cookie", "a=1")
	resp.AddHeader("X-Middle", "yes")
	resp.AddHeader("Set-Cookie", "b=2")

	wire, _, err := writeToWire(t, resp, false)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 418 Short And Stout\r\n"))

	// Duplicates survive verbatim and in declaration order.
	headerBlock := wire[:strings.Index(wire, "\r\n\r\n")]
	first := strings.Index(headerBlock, "Set-Cookie: a=1")
	middle := strings.Index(headerBlock, "X-Middle: yes")
	second := strings.Index(headerBlock, "Set-Cookie: b=2")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, middle, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, middle)
	assert.Less(t, middle, second)
}

func TestWriteDefaultReasonPhrase(t *testing.T) {
	wire, _, err := writeToWire(t, NewStatus(http.StatusNoContent), false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 204 No Content\r\n"))
	assert.Contains(t, wire, "Content-Length: 0\r\n")
}

func TestWriteWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	content := strings.Repeat("sendfile body ", 1024)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	resp, err := NewFile(http.StatusOK, "application/octet-stream", f)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), resp.ContentLength)

	wire, keepAlive, err := writeToWire(t, resp, true)
	require.NoError(t, err)
	assert.True(t, keepAlive)
	assert.True(t, strings.HasSuffix(wire, content))
	assert.Contains(t, wire, "Content-Type: application/octet-stream\r\n")
}

func TestNewJSON(t *testing.T) {
	resp := NewJSON(http.StatusOK, map[string]int{"n": 7})

	wire, _, err := writeToWire(t, resp, false)
	require.NoError(t, err)
	assert.Contains(t, wire, "Content-Type: application/json\r\n")
	assert.True(t, strings.HasSuffix(wire, `{"n":7}`))
}

func TestWriteFailurePropagates(t *testing.T) {
	client, srv := net.Pipe()
	client.Close() // peer gone before we write

	_, err := Write(srv, NewText(http.StatusOK, "ok"), false)
	assert.Error(t, err)
}
