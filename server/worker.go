package server

import (
	"bufio"
	"net"
	"net/http"

	"github.com/lookback/swifter/metrics"
	"github.com/lookback/swifter/response"
)

// serveConn is the per-connection worker: read one request, dispatch it,
// write the response, then either loop for the next request (keep-alive),
// hand the raw connection to a session procedure (upgrade), or exit.
//
// Requests on one connection are strictly sequential, no pipelining. On
// exit the worker closes the socket exactly once and deregisters it; the
// deregistration is a no-op when Stop already cleared the registry.
func (s *Server) serveConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.conns.remove(conn)
	}()

	br := bufio.NewReader(conn)
	for {
		req, err := s.parser.ReadRequest(br)
		if err != nil {
			// Peer gone, malformed request, or the read failure
			// induced by Stop's half-close. All of them end only
			// this connection.
			return
		}
		if !s.Operating() {
			// Request raced a shutdown; do not process it.
			return
		}

		if addr := conn.RemoteAddr(); addr != nil {
			req.RemoteAddr = addr.String()
		}

		params, handler := s.router.Dispatch(req)
		req.Params = params
		resp := handler(req)
		if resp == nil {
			// Dispatch must always produce a response; synthesize
			// one rather than crash the worker.
			resp = response.NewText(http.StatusInternalServerError, "internal server error\n")
		}
		metrics.RequestsServed.Inc()

		wantKeepAlive := s.parser.SupportsKeepAlive(&req.Header) && s.Operating()
		keepAlive, err := response.Write(conn, resp, wantKeepAlive)
		if err != nil {
			metrics.ResponseWriteErrors.Inc()
			s.log.Error("response write failed", "remote", req.RemoteAddr, "err", err)
			return
		}

		if resp.Session != nil {
			// Protocol upgrade: the session takes exclusive control
			// of the connection and the HTTP loop never resumes.
			// Bytes the client pipelined behind the upgrade request
			// may already sit in br; the session must see them first.
			metrics.SessionHandoffs.Inc()
			sc := conn
			if br.Buffered() > 0 {
				sc = &bufferedConn{Conn: conn, br: br}
			}
			resp.Session(sc)
			return
		}
		if !keepAlive {
			return
		}
	}
}

// bufferedConn serves reads from the worker's buffered reader before
// falling through to the socket, so a session handed the connection never
// loses bytes the worker had already read ahead.
type bufferedConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.br.Read(p)
}
