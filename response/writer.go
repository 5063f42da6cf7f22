package response

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// Write serializes resp onto conn: status line, Content-Length when the
// length is known, Connection: keep-alive when negotiated, the declared
// headers verbatim and in order, a blank line, then the body if any.
//
// The returned bool is the final keep-alive decision: the caller's intent
// AND a known content length. A body of unknown length has no frame
// boundary the client could use to find the next response, so the
// connection must close to terminate it.
func Write(conn net.Conn, resp *Response, wantKeepAlive bool) (bool, error) {
	keepAlive := wantKeepAlive && resp.ContentLength >= 0

	reason := resp.Reason
	if reason == "" {
		reason = http.StatusText(resp.Status)
	}

	sink := &connSink{bw: bufio.NewWriter(conn), conn: conn}
	fmt.Fprintf(sink.bw, "HTTP/1.1 %d %s\r\n", resp.Status, reason)
	if resp.ContentLength >= 0 {
		fmt.Fprintf(sink.bw, "Content-Length: %d\r\n", resp.ContentLength)
	}
	if keepAlive {
		sink.bw.WriteString("Connection: keep-alive\r\n")
	}
	for _, f := range resp.Header {
		fmt.Fprintf(sink.bw, "%s: %s\r\n", f.Name, f.Value)
	}
	sink.bw.WriteString("\r\n")

	if resp.Body != nil {
		if err := resp.Body(sink); err != nil {
			return false, err
		}
	}
	if err := sink.bw.Flush(); err != nil {
		return false, err
	}
	return keepAlive, nil
}
