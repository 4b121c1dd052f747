package server

import (
	"errors"
	"io"

	"streamchat/internal/protocol"
)

// readPump decodes frames off the session's transport and forwards them to
// the run loop until the connection ends or the stream turns malformed. One
// pump per session. Closing the transport is writePump's job, so frames
// queued here (the decode-error notice in particular) are flushed before the
// connection goes away.
func (e *Engine) readPump(s *Session) {
	defer func() {
		select {
		case e.unregister <- s:
		case <-e.ctx.Done():
			_ = s.transport.Close()
		}
	}()

	for {
		raw, err := s.transport.ReadFrame()
		if err != nil {
			var decodeErr *protocol.DecodeError
			switch {
			case errors.As(err, &decodeErr):
				// The framing layer cannot recover; tell the client why
				// before tearing the session down.
				s.enqueue(mustEncode(protocol.NewError("Wrong data format. Must be valid JSON.")))
			case errors.Is(err, io.EOF):
			default:
				e.log.Error("read from %s: %v", s.label(), err)
			}
			return
		}

		select {
		case e.inbound <- inboundFrame{session: s, raw: raw}:
		case <-e.ctx.Done():
			return
		}
	}
}

// writePump drains the session's send channel onto the transport. A failed
// write is a delivery failure for this session only: it is unregistered and
// the remaining frames are discarded.
func (e *Engine) writePump(s *Session) {
	for frame := range s.send {
		if err := s.transport.WriteFrame(frame); err != nil {
			e.log.Error("write to %s: %v", s.label(), err)
			select {
			case e.unregister <- s:
			case <-e.ctx.Done():
			}
			for range s.send {
				// drain until the registry closes the channel
			}
			_ = s.transport.Close()
			return
		}
	}
	_ = s.transport.Close()
}

// mustEncode is for responses built from static content; encoding them
// cannot fail.
func mustEncode(r protocol.Response) []byte {
	frame, err := protocol.Encode(r)
	if err != nil {
		panic(err)
	}
	return frame
}
