package http2

// Handler is how the connection engine hands decoded requests to
// whatever sits above it (the ASGI bridge, in this module's case) and
// receives the bytes to write back. The engine never imports the asgi
// package; asgi imports http2 and implements Handler, keeping the wire
// protocol ignorant of ASGI's message shapes.
type Handler interface {
	// HandleHeaders is called once a stream's full header block (HEADERS
	// plus any CONTINUATIONs) has been HPACK-decoded. fields is only
	// valid for the duration of the call.
	HandleHeaders(c *Conn, stream *Stream, fields []HeaderField, endStream bool)

	// HandleData is called for each DATA frame's payload, padding
	// already removed. data is only valid for the duration of the call.
	HandleData(c *Conn, stream *Stream, data []byte, endStream bool)

	// HandleReset is called when a stream is reset, either by the peer
	// (RST_STREAM received) or because the connection is tearing down
	// (code will be InternalError in that case).
	HandleReset(c *Conn, stream *Stream, code ErrorCode)
}

// HeaderField mirrors hpack.HeaderField in the http2 package's own
// vocabulary, so Handler implementations don't need to import the hpack
// package just to read a decoded field.
type HeaderField struct {
	Name      string
	Value     string
	Sensitive bool
}

// outboundKind tags what an outboundCmd asks the writer goroutine to do.
type outboundKind uint8

const (
	outHeaders outboundKind = iota
	outData
	outReset
	outWindowUpdate
	outPing
	outGoAway
	outSettingsAck
	outPingReply
)

// outboundCmd is a unit of work handed from any goroutine (typically a
// Handler's worker) to the connection's single writer goroutine, which
// owns the HPACK encoder and the wire.
type outboundCmd struct {
	kind     outboundKind
	streamID uint32

	headers   []HeaderField
	endStream bool

	data []byte

	code ErrorCode

	increment int32

	pingData [8]byte

	debugData []byte
}
