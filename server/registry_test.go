package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnRegistryAddRemove(t *testing.T) {
	r := newConnRegistry()
	assert.Equal(t, 0, r.len())

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	r.add(c1)
	r.add(c2)
	assert.Equal(t, 2, r.len())

	r.remove(c1)
	assert.Equal(t, 1, r.len())

	// Removing twice is a no-op, as when Stop already cleared the set.
	r.remove(c1)
	assert.Equal(t, 1, r.len())
}

func TestShutdownAllUnblocksPipeRead(t *testing.T) {
	client, srv := net.Pipe()
	defer client.Close()

	r := newConnRegistry()
	r.add(srv)

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := srv.Read(buf)
		readErr <- err
	}()

	// Give the reader a moment to block.
	time.Sleep(20 * time.Millisecond)
	r.shutdownAll()

	select {
	case err := <-readErr:
		// net.Pipe has no half-close, so the deadline fallback fires.
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked read was not interrupted by shutdownAll")
	}
	assert.Equal(t, 0, r.len())
}

func TestShutdownAllHalfClosesTCP(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp4", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	srvConn := <-accepted
	defer srvConn.Close()

	r := newConnRegistry()
	r.add(srvConn)

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := srvConn.Read(buf)
		readErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	r.shutdownAll()

	select {
	case err := <-readErr:
		// TCP half-close surfaces the shutdown as EOF on the read side.
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked read was not interrupted by shutdownAll")
	}
	assert.Equal(t, 0, r.len())
}
