package server

import (
	"encoding/json"
	"net"
	"sync"

	"streamchat/internal/protocol"
)

// Transport is one client connection capable of exchanging protocol frames.
// The engine is transport-agnostic: the TCP listener and the WebSocket
// gateway both hand it Transports.
//
// ReadFrame blocks until a complete frame arrives. Implementations return
// io.EOF when the peer is gone, and a *protocol.DecodeError when the stream
// turned malformed; a decode error is terminal for the connection.
type Transport interface {
	ReadFrame() (json.RawMessage, error)
	WriteFrame(frame []byte) error
	RemoteAddr() string
	Close() error
}

// tcpTransport frames a raw TCP stream with the incremental JSON decoder.
type tcpTransport struct {
	conn net.Conn
	dec  *protocol.FrameDecoder

	wmu       sync.Mutex
	closeOnce sync.Once
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn, dec: protocol.NewFrameDecoder(conn)}
}

func (t *tcpTransport) ReadFrame() (json.RawMessage, error) {
	return t.dec.Next()
}

func (t *tcpTransport) WriteFrame(frame []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *tcpTransport) Close() error {
	var err error
	t.closeOnce.Do(func() { err = t.conn.Close() })
	return err
}
