package irc

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostPort(t *testing.T, addr net.Addr) (string, int) {
	t.Helper()
	host, p, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}

func TestWebSocketDialer(t *testing.T) {
	received := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frame := "PING :tmi.twitch.tv\r\n:tmi.twitch.tv 001 me :Welcome, GLHF!\r\n"
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		// Wait for the client to close.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	host, port := hostPort(t, srv.Listener.Addr())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &WebSocketDialer{}
	conn, err := d.Dial(ctx, host, port, false)
	require.NoError(t, err)

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "PING :tmi.twitch.tv", line)
	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, ":tmi.twitch.tv 001 me :Welcome, GLHF!", line)

	require.NoError(t, conn.WriteLine("PONG :tmi.twitch.tv"))
	select {
	case got := <-received:
		assert.Equal(t, "PONG :tmi.twitch.tv", got)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the line")
	}

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestWebSocketDialerHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	host, port := hostPort(t, srv.Listener.Addr())
	d := &WebSocketDialer{}
	_, err := d.Dial(context.Background(), host, port, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTCPDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("PING :tmi.twitch.tv\r\n"))
		r := bufio.NewReader(conn)
		line, _ := r.ReadString('\n')
		received <- line
	}()

	host, port := hostPort(t, ln.Addr())
	d := &TCPDialer{}
	conn, err := d.Dial(context.Background(), host, port, false)
	require.NoError(t, err)
	defer conn.Close()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "PING :tmi.twitch.tv", line)

	require.NoError(t, conn.WriteLine("PONG :tmi.twitch.tv"))
	select {
	case got := <-received:
		assert.Equal(t, "PONG :tmi.twitch.tv\r\n", got)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the line")
	}
}

func TestChanInOut(t *testing.T) {
	server, client := net.Pipe()
	conn := newTCPConn(client)
	in, out, done := ChanInOut(conn)

	go func() {
		_, _ = server.Write([]byte("a\r\nb\r\n"))
	}()
	assert.Equal(t, "a", <-in)
	assert.Equal(t, "b", <-in)

	r := bufio.NewReader(server)
	out <- "PONG"
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "PONG\r\n", line)

	close(out)
	_, ok := <-in
	assert.False(t, ok, "closing out closes the connection")
	assert.Error(t, <-done)
}
