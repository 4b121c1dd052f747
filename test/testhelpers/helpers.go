// Package testhelpers provides shared utilities for integration-testing the
// chat service over real TCP and WebSocket connections.
package testhelpers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"streamchat/internal/logging"
	"streamchat/internal/protocol"
	"streamchat/internal/server"
)

// StartServer spins up an engine plus TCP listener on an ephemeral loopback
// port and tears both down when the test finishes. It returns the engine,
// the server, and the address to dial.
func StartServer(t *testing.T) (*server.Engine, *server.Server, string) {
	t.Helper()

	log := logging.New(logging.LevelError)
	log.SetOutput(io.Discard)

	cfg := server.NewConfig()
	cfg.Port = 0

	engine := server.NewEngine(cfg, log)
	go engine.Run()
	t.Cleanup(engine.Stop)

	srv := server.NewServer(cfg, engine, log)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	return engine, srv, srv.Addr().String()
}

// ChatConn wraps one TCP connection with the protocol's frame codec.
type ChatConn struct {
	t    *testing.T
	conn net.Conn
	dec  *protocol.FrameDecoder
}

// Dial connects to a running chat server.
func Dial(t *testing.T, addr string) *ChatConn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &ChatConn{t: t, conn: conn, dec: protocol.NewFrameDecoder(conn)}
}

// Send writes one request frame. A nil content is transmitted as JSON null.
func (c *ChatConn) Send(request string, content any) {
	c.t.Helper()
	payload, err := json.Marshal(map[string]any{"request": request, "content": content})
	if err != nil {
		c.t.Fatalf("marshal request: %v", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.t.Fatalf("write request: %v", err)
	}
}

// SendRaw writes arbitrary bytes, for exercising the framing layer.
func (c *ChatConn) SendRaw(data []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("write raw bytes: %v", err)
	}
}

// Next blocks for the next response frame, failing the test after the
// timeout.
func (c *ChatConn) Next() protocol.Response {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := c.dec.Next()
	if err != nil {
		c.t.Fatalf("read response: %v", err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
	return resp
}

// ExpectNone asserts that no response arrives within the grace period.
func (c *ChatConn) ExpectNone(grace time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(grace))
	raw, err := c.dec.Next()
	if err == nil {
		c.t.Fatalf("unexpected response: %s", raw)
	}
	if !isTimeout(err) {
		c.t.Fatalf("expected a read timeout, got: %v", err)
	}
}

// ExpectClosed asserts that the server closes the connection.
func (c *ChatConn) ExpectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, err := c.dec.Next(); err != nil {
			if isTimeout(err) {
				c.t.Fatalf("expected the connection to close, got: %v", err)
			}
			// EOF, resets and closed-connection errors all mean closed.
			return
		}
	}
}

// Login sends a login and consumes the responses up to and including the
// welcome, returning the history replayed on the way.
func (c *ChatConn) Login(nickname string) []protocol.Response {
	c.t.Helper()
	c.Send("login", nickname)

	var history []protocol.Response
	for {
		resp := c.Next()
		switch resp.Kind {
		case protocol.RespHistory:
			history = append(history, resp)
		case protocol.RespInfo:
			return history
		default:
			c.t.Fatalf("unexpected %s response during login: %v", resp.Kind, resp.ContentText())
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// DialWS opens a WebSocket connection to a gateway endpoint.
func DialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", "http://localhost")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial websocket %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendWS writes one request frame as a text message.
func SendWS(t *testing.T, conn *websocket.Conn, request string, content any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"request": request, "content": content})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

// NextWS reads and decodes one response frame from a WebSocket connection.
func NextWS(t *testing.T, conn *websocket.Conn) protocol.Response {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
