package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResponseKind enumerates the server-to-client response levels.
type ResponseKind string

const (
	RespInfo    ResponseKind = "info"
	RespError   ResponseKind = "error"
	RespMessage ResponseKind = "message"
	RespHistory ResponseKind = "history"
)

// Sender identifies who a response is attributed to: either a literal label
// such as the server identity, or the nickname of an authorized session.
// Resolution happens once, when the Sender is constructed.
type Sender struct {
	label   string
	session bool
}

// Server is the literal identity used for responses not attributed to a
// chatting session.
var Server = LiteralSender("server")

// LiteralSender attributes a response to a fixed label.
func LiteralSender(label string) Sender {
	return Sender{label: label}
}

// SessionSender attributes a response to an authorized session's nickname.
func SessionSender(nickname string) Sender {
	return Sender{label: nickname, session: true}
}

// IsSession reports whether the sender is a chatting session rather than a
// literal label.
func (s Sender) IsSession() bool { return s.session }

func (s Sender) String() string { return s.label }

// Response is one server-to-client payload. Content is a string for every
// kind except the names listing, which carries the nicknames as a list.
type Response struct {
	Kind      ResponseKind
	Content   any
	Timestamp time.Time
	Sender    Sender
}

// NewInfo builds an info response stamped now.
func NewInfo(content any, sender Sender) Response {
	return Response{Kind: RespInfo, Content: content, Timestamp: time.Now(), Sender: sender}
}

// NewError builds an error response from the server identity, stamped now.
func NewError(message string) Response {
	return Response{Kind: RespError, Content: message, Timestamp: time.Now(), Sender: Server}
}

// NewMessage builds a broadcast message response stamped now.
func NewMessage(content string, sender Sender) Response {
	return Response{Kind: RespMessage, Content: content, Timestamp: time.Now(), Sender: sender}
}

// NewHistory builds a history replay response carrying the original send
// time of the replayed message.
func NewHistory(content string, sender Sender, at time.Time) Response {
	return Response{Kind: RespHistory, Content: content, Timestamp: at, Sender: sender}
}

// responsePayload is the wire shape of a response frame. Timestamps marshal
// as RFC 3339, which satisfies the ISO-8601 requirement of the protocol.
type responsePayload struct {
	Response  ResponseKind `json:"response"`
	Content   any          `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Sender    string       `json:"sender"`
}

// Encode serializes a response to its wire form. A trailing newline keeps
// the stream readable for humans; receivers must not rely on it, the frame
// boundary is the JSON value itself.
func Encode(r Response) ([]byte, error) {
	buf, err := json.Marshal(responsePayload{
		Response:  r.Kind,
		Content:   r.Content,
		Timestamp: r.Timestamp,
		Sender:    r.Sender.String(),
	})
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// DecodeResponse parses a received response frame. Content comes back as a
// string, or as a []string for the names listing.
func DecodeResponse(raw json.RawMessage) (Response, error) {
	var payload struct {
		Response  ResponseKind    `json:"response"`
		Content   json.RawMessage `json:"content"`
		Timestamp time.Time       `json:"timestamp"`
		Sender    string          `json:"sender"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	r := Response{
		Kind:      payload.Response,
		Timestamp: payload.Timestamp,
		Sender:    LiteralSender(payload.Sender),
	}

	var text string
	if err := json.Unmarshal(payload.Content, &text); err == nil {
		r.Content = text
		return r, nil
	}
	var list []string
	if err := json.Unmarshal(payload.Content, &list); err == nil {
		r.Content = list
		return r, nil
	}
	return Response{}, fmt.Errorf("decode response: unsupported content %s", payload.Content)
}

// ContentText renders a response's content as a single line, joining name
// listings with a comma.
func (r Response) ContentText() string {
	switch c := r.Content.(type) {
	case string:
		return c
	case []string:
		return strings.Join(c, ", ")
	default:
		return fmt.Sprint(c)
	}
}
