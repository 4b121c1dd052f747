package protocol

// CommandErrorKind classifies the ways a request frame can fail validation.
type CommandErrorKind int

const (
	// MalformedPayload: the frame is not an object with a string request
	// field and a string-or-null content field.
	MalformedPayload CommandErrorKind = iota
	// UnknownCommand: the request names no supported command.
	UnknownCommand
	// MissingArgument: login or msg arrived without content.
	MissingArgument
	// IllegalArgument: logout, names or help arrived with content.
	IllegalArgument
	// InvalidNickname: a login nickname outside [A-Za-z0-9]+.
	InvalidNickname
)

// CommandError reports a request that failed validation. It is recoverable:
// the requester is told in an error response and the connection stays open.
type CommandError struct {
	Kind    CommandErrorKind
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// DecodeError reports bytes that cannot continue as well-formed JSON. It is
// fatal to the connection that produced it; no further frames are decoded
// from that stream.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
