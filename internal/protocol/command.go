// Package protocol implements the wire protocol of the chat service: the
// incremental frame decoder, command parsing and validation, and response
// construction and serialization.
//
// A frame is one complete top-level JSON value on the stream. Clients send
// request frames of the form {"request": ..., "content": ...}; the server
// answers with response frames carrying response, content, timestamp and
// sender fields. Values are transmitted back-to-back, so both sides must
// decode incrementally rather than assume one value per read.
package protocol

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// CommandKind enumerates the requests a client may issue.
type CommandKind string

const (
	CmdLogin  CommandKind = "login"
	CmdLogout CommandKind = "logout"
	CmdMsg    CommandKind = "msg"
	CmdNames  CommandKind = "names"
	CmdHelp   CommandKind = "help"
)

// Command is a validated client request. Content is non-empty exactly when
// the kind requires an argument; a Command violating the protocol rules is
// never constructed.
type Command struct {
	Kind    CommandKind
	Content string
}

// requestPayload is the raw shape of a request frame. Pointer fields let
// validation tell an absent field from an empty one and reject non-string
// values.
type requestPayload struct {
	Request *string `json:"request"`
	Content *string `json:"content"`
}

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// RequiresArgument reports whether the command kind carries content.
func RequiresArgument(kind CommandKind) bool {
	return kind == CmdLogin || kind == CmdMsg
}

// ParseCommand validates a decoded request frame and returns the Command it
// carries. Validation failures are reported as a *CommandError; the frame is
// recoverable and the connection stays open.
func ParseCommand(raw json.RawMessage) (Command, error) {
	var payload requestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Command{}, &CommandError{Kind: MalformedPayload, Message: "Malformed payload."}
	}
	if payload.Request == nil {
		return Command{}, &CommandError{Kind: MalformedPayload, Message: "Malformed payload."}
	}

	content := ""
	if payload.Content != nil {
		content = *payload.Content
	}
	return validate(*payload.Request, content)
}

// ParseLine converts one typed line, "<command> [argument]", into a Command.
// The interactive client feeds user input through this so that both ends
// apply the same validation rules.
func ParseLine(line string) (Command, error) {
	name, rest, _ := strings.Cut(line, " ")
	return validate(name, rest)
}

// validate applies the protocol rules shared by the wire and line parsers.
// An empty content string is indistinguishable from an absent one.
func validate(request, content string) (Command, error) {
	kind := CommandKind(request)
	switch kind {
	case CmdLogin, CmdLogout, CmdMsg, CmdNames, CmdHelp:
	default:
		return Command{}, &CommandError{
			Kind:    UnknownCommand,
			Message: fmt.Sprintf("Unknown command: %s.", request),
		}
	}

	if RequiresArgument(kind) && content == "" {
		return Command{}, &CommandError{Kind: MissingArgument, Message: "Missing argument."}
	}
	if !RequiresArgument(kind) && content != "" {
		return Command{}, &CommandError{Kind: IllegalArgument, Message: "Illegal argument."}
	}
	if kind == CmdLogin && !nicknamePattern.MatchString(content) {
		return Command{}, &CommandError{Kind: InvalidNickname, Message: "Invalid nickname."}
	}

	return Command{Kind: kind, Content: content}, nil
}

// EncodeRequest serializes a Command to its wire form. Commands without an
// argument carry an explicit null content.
func EncodeRequest(c Command) ([]byte, error) {
	payload := struct {
		Request string  `json:"request"`
		Content *string `json:"content"`
	}{Request: string(c.Kind)}
	if RequiresArgument(c.Kind) {
		payload.Content = &c.Content
	}
	return json.Marshal(payload)
}
