// Package asgi bridges the wire-protocol engine in h2 to an ASGI-3-style
// application host: it builds a scope from a decoded header block, hands
// the application a pair of queues, and turns outbound ASGI messages back
// into HEADERS/DATA frames.
package asgi

// MessageType tags an AsgiMessage the way ASGI's "type" string field does,
// without paying for a map[string]interface{} on every message.
type MessageType uint8

const (
	TypeHTTPRequest MessageType = iota
	TypeHTTPDisconnect
	TypeHTTPResponseStart
	TypeHTTPResponseBody
	TypeLifespanStartup
	TypeLifespanStartupComplete
	TypeLifespanStartupFailed
	TypeLifespanShutdown
	TypeLifespanShutdownComplete
	TypeLifespanShutdownFailed
)

func (t MessageType) String() string {
	switch t {
	case TypeHTTPRequest:
		return "http.request"
	case TypeHTTPDisconnect:
		return "http.disconnect"
	case TypeHTTPResponseStart:
		return "http.response.start"
	case TypeHTTPResponseBody:
		return "http.response.body"
	case TypeLifespanStartup:
		return "lifespan.startup"
	case TypeLifespanStartupComplete:
		return "lifespan.startup.complete"
	case TypeLifespanStartupFailed:
		return "lifespan.startup.failed"
	case TypeLifespanShutdown:
		return "lifespan.shutdown"
	case TypeLifespanShutdownComplete:
		return "lifespan.shutdown.complete"
	case TypeLifespanShutdownFailed:
		return "lifespan.shutdown.failed"
	}
	return "unknown"
}

// Header is an ASGI (name, value) byte pair, kept as strings here since
// the engine already hands us decoded UTF-8 from HPACK.
type Header struct {
	Name  string
	Value string
}

// Message is a tagged variant covering every ASGI message this bridge
// produces or consumes. Only the fields relevant to Type are meaningful;
// this mirrors the teacher's own preference for a single mutable struct
// (Request/Response) reused across a stream's lifetime rather than an
// interface hierarchy.
type Message struct {
	Type MessageType

	// http.request / http.response.body
	Body     []byte
	MoreBody bool

	// http.response.start
	Status  int
	Headers []Header

	// lifespan.*.failed
	FailureMessage string
}
