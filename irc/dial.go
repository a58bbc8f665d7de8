package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens connections to chat servers.
type Dialer interface {
	Dial(ctx context.Context, host string, port int, secure bool) (Conn, error)
}

// TCPDialer connects with raw TCP, wrapped in TLS when secure.
type TCPDialer struct {
	TLSConfig *tls.Config
}

func (d *TCPDialer) Dial(ctx context.Context, host string, port int, secure bool) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if secure {
		var cfg tls.Config
		if d.TLSConfig != nil {
			cfg = *d.TLSConfig.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		tlsConn := tls.Client(conn, &cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	return newTCPConn(conn), nil
}

type tcpConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	once    sync.Once
}

func newTCPConn(conn net.Conn) *tcpConn {
	return &tcpConn{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", net.ErrClosed
	}
	return c.scanner.Text(), nil
}

func (c *tcpConn) WriteLine(line string) error {
	_, err := fmt.Fprintf(c.conn, "%s\r\n", line)
	return err
}

func (c *tcpConn) Close() (err error) {
	c.once.Do(func() {
		err = c.conn.Close()
	})
	return
}

// WebSocketDialer connects over WebSocket.  Each frame may hold several lines.
type WebSocketDialer struct {
	Dialer *websocket.Dialer // nil means a dialer with a 10s handshake timeout.
	Path   string
}

func (d *WebSocketDialer) Dial(ctx context.Context, host string, port int, secure bool) (Conn, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   d.Path,
	}
	if secure {
		u.Scheme = "wss"
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		}
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed with status %s: %w", u.String(), resp.Status, err)
		}
		return nil, err
	}

	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn    *websocket.Conn
	pending []string // lines of the last frame not read yet.
	wl      sync.Mutex
	once    sync.Once
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsConn) WriteLine(line string) error {
	c.wl.Lock()
	defer c.wl.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() (err error) {
	c.once.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return
}
