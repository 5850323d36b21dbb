// Package ws adapts a gorilla/websocket connection to the net.Conn shape the
// host layer's dialer expects, so Client.dialServer's scheme switch can hand
// ws:// and wss:// endpoints the same stream abstraction it gives tcp:// and
// tls://.
package ws

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// subprotocol is the IANA-registered WebSocket subprotocol for MQTT.
const subprotocol = "mqtt"

// Dial opens a WebSocket connection to addr (a ws:// or wss:// URL) and
// returns it wrapped as a net.Conn carrying binary frames.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	if _, err := url.Parse(addr); err != nil {
		return nil, err
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 30 * time.Second,
		Subprotocols:     []string{subprotocol},
	}
	c, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return &conn{Conn: c}, nil
}

// conn adapts *websocket.Conn to net.Conn, buffering partial reads across
// Read calls since a websocket message and a net.Conn Read are not the same
// granularity.
type conn struct {
	*websocket.Conn
	readBuf []byte
}

func (c *conn) Read(b []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.readBuf = data
	}
	n := copy(b, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *conn) Write(b []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *conn) Close() error {
	return c.Conn.Close()
}

func (c *conn) SetDeadline(t time.Time) error {
	if err := c.Conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Conn.SetWriteDeadline(t)
}
