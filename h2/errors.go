package http2

import "fmt"

// ErrorCode is an HTTP/2 error code as carried on RST_STREAM and GOAWAY
// frames (https://httpwg.org/specs/rfc7540.html#ErrorCodes).
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	SettingsTimeout    ErrorCode = 0x4
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStreamError ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
	ConnectError       ErrorCode = 0xa
	EnhanceYourCalm    ErrorCode = 0xb
	InadequateSecurity ErrorCode = 0xc
	HTTP11Required     ErrorCode = 0xd
)

var errorCodeNames = [...]string{
	NoError:            "NO_ERROR",
	ProtocolError:      "PROTOCOL_ERROR",
	InternalError:      "INTERNAL_ERROR",
	FlowControlError:   "FLOW_CONTROL_ERROR",
	SettingsTimeout:    "SETTINGS_TIMEOUT",
	StreamClosedError:  "STREAM_CLOSED",
	FrameSizeError:     "FRAME_SIZE_ERROR",
	RefusedStreamError: "REFUSED_STREAM",
	CancelError:        "CANCEL",
	CompressionError:   "COMPRESSION_ERROR",
	ConnectError:       "CONNECT_ERROR",
	EnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	InadequateSecurity: "INADEQUATE_SECURITY",
	HTTP11Required:     "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) && errorCodeNames[c] != "" {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(0x%x)", uint32(c))
}

// scope distinguishes a stream-level failure (RST_STREAM) from a
// connection-level failure (GOAWAY); both are reported through the same
// Error type so callers can use errors.As uniformly.
type scope uint8

const (
	scopeStream scope = iota
	scopeConnection
)

// Error is the error type every protocol-violation path in the engine
// returns. Its scope tells the caller whether to answer with a
// stream-scoped RST_STREAM or tear the whole connection down with GOAWAY.
type Error struct {
	Scope   scope
	Code    ErrorCode
	Message string
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConnError reports whether e must be handled as a connection-scoped
// failure (GOAWAY) rather than a single stream reset.
func (e Error) IsConnError() bool {
	return e.Scope == scopeConnection
}

// NewStreamError builds a stream-scoped error that the engine answers
// with RST_STREAM(code) on the offending stream only.
func NewStreamError(code ErrorCode, message string) error {
	return Error{Scope: scopeStream, Code: code, Message: message}
}

// NewConnError builds a connection-scoped error that the engine answers
// with GOAWAY(code) and begins tearing the connection down.
func NewConnError(code ErrorCode, message string) error {
	return Error{Scope: scopeConnection, Code: code, Message: message}
}
