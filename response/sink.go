package response

import (
	"bufio"
	"io"
	"net"
	"os"
)

// Sink is the minimal write capability handed to a response body writer.
// It deliberately exposes nothing else of the underlying socket.
type Sink interface {
	// Write sends a byte buffer to the peer.
	Write(p []byte) (int, error)

	// WriteFile transfers the file's remaining content to the peer. On
	// TCP connections the transfer goes through the kernel sendfile path
	// without an intermediate userspace copy.
	WriteFile(f *os.File) (int64, error)
}

// connSink binds a Sink to one connection. Buffered writes go through bw;
// WriteFile flushes the buffer first so the file bytes hit the raw socket,
// where net.TCPConn's ReadFrom uses sendfile.
type connSink struct {
	bw   *bufio.Writer
	conn net.Conn
}

func (s *connSink) Write(p []byte) (int, error) {
	return s.bw.Write(p)
}

func (s *connSink) WriteFile(f *os.File) (int64, error) {
	if err := s.bw.Flush(); err != nil {
		return 0, err
	}
	return io.Copy(s.conn, f)
}
