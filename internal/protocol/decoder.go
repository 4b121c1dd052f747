package protocol

import (
	"encoding/json"
	"errors"
	"io"
)

// FrameDecoder incrementally extracts complete top-level JSON values from a
// byte stream. Values may be split across arbitrary read boundaries and are
// emitted as soon as their closing boundary is observed; no partial value is
// ever returned. The first malformed byte sequence poisons the decoder:
// every subsequent call returns the same *DecodeError.
type FrameDecoder struct {
	dec *json.Decoder
	err error
}

// NewFrameDecoder returns a decoder reading from r.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{dec: json.NewDecoder(r)}
}

// Next blocks until a complete value is available and returns it. It returns
// io.EOF when the stream ends (cleanly or mid-value), a *DecodeError when
// the stream turns malformed, and the underlying read error otherwise.
func (d *FrameDecoder) Next() (json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}

	var raw json.RawMessage
	err := d.dec.Decode(&raw)
	if err == nil {
		return raw, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}

	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		d.err = &DecodeError{Err: err}
		return nil, d.err
	}

	return nil, err
}
