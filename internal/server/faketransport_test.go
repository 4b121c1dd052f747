package server_test

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"streamchat/internal/protocol"
)

// fakeTransport is an in-memory Transport for driving the engine without
// sockets. Frames pushed with push() come out of ReadFrame; frames the
// engine writes land on out.
type fakeTransport struct {
	remote string
	in     chan readResult
	out    chan []byte

	once   sync.Once
	closed chan struct{}
}

type readResult struct {
	raw json.RawMessage
	err error
}

func newFakeTransport(remote string) *fakeTransport {
	return &fakeTransport{
		remote: remote,
		in:     make(chan readResult, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadFrame() (json.RawMessage, error) {
	select {
	case r := <-t.in:
		return r.raw, r.err
	case <-t.closed:
		return nil, io.EOF
	}
}

func (t *fakeTransport) WriteFrame(frame []byte) error {
	select {
	case t.out <- frame:
		return nil
	case <-t.closed:
		return errors.New("transport closed")
	default:
		return errors.New("write buffer full")
	}
}

func (t *fakeTransport) RemoteAddr() string { return t.remote }

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

// send pushes one request frame, built from the given request and content.
func (t *fakeTransport) send(tt *testing.T, request string, content any) {
	tt.Helper()
	raw, err := json.Marshal(map[string]any{"request": request, "content": content})
	if err != nil {
		tt.Fatalf("marshal request: %v", err)
	}
	t.in <- readResult{raw: raw}
}

// failDecode makes the next ReadFrame return a fatal decode error, as the
// frame decoder would for malformed bytes.
func (t *fakeTransport) failDecode() {
	t.in <- readResult{err: &protocol.DecodeError{Err: errors.New("invalid character 'h'")}}
}

// next waits for the engine to write one response frame and decodes it.
func (t *fakeTransport) next(tt *testing.T) protocol.Response {
	tt.Helper()
	select {
	case frame := <-t.out:
		resp, err := protocol.DecodeResponse(frame)
		if err != nil {
			tt.Fatalf("decode response frame %s: %v", frame, err)
		}
		return resp
	case <-time.After(2 * time.Second):
		tt.Fatal("timed out waiting for a response frame")
		return protocol.Response{}
	}
}

// expectNone asserts that no frame arrives within the grace period.
func (t *fakeTransport) expectNone(tt *testing.T) {
	tt.Helper()
	select {
	case frame := <-t.out:
		tt.Fatalf("unexpected response frame: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

// waitClosed blocks until the engine closes the transport.
func (t *fakeTransport) waitClosed(tt *testing.T) {
	tt.Helper()
	select {
	case <-t.closed:
	case <-time.After(2 * time.Second):
		tt.Fatal("timed out waiting for the transport to close")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(tt *testing.T, cond func() bool, msg string) {
	tt.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	tt.Fatal(msg)
}
