// Package http2 implements the HTTP/2 frame codec, stream table, and
// connection engine described by RFC 7540/7541: the wire-level half of an
// ASGI-compatible server. It does not know how to accept TCP/TLS
// connections or host an application; see the asgi subpackage for the
// bridge that turns frames into ASGI messages.
package http2

import "sync"

// FrameType identifies the kind of an HTTP/2 frame
// (https://httpwg.org/specs/rfc7540.html#FrameTypes).
type FrameType uint8

const (
	FrameData FrameType = iota
	FrameHeaders
	FramePriority
	FrameResetStream
	FrameSettings
	FramePushPromise
	FramePing
	FrameGoAway
	FrameWindowUpdate
	FrameContinuation

	minFrameType = FrameData
	maxFrameType = FrameContinuation
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameResetStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	}
	return "UNKNOWN"
}

// FrameFlags is the one-byte flag field of a frame header. Only a subset
// of bits are meaningful, and their meaning depends on the frame type;
// ACK and END_STREAM share bit 0x1.
type FrameFlags uint8

const (
	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

// Has reports whether f has every bit of want set.
func (f FrameFlags) Has(want FrameFlags) bool {
	return f&want == want
}

// Add returns f with want's bits set.
func (f FrameFlags) Add(want FrameFlags) FrameFlags {
	return f | want
}

// Frame is the behavior every typed frame payload implements: how to
// reset itself for reuse, and how to convert to/from the generic
// FrameHeader's raw payload bytes.
type Frame interface {
	Type() FrameType
	Reset()
	// Deserialize populates the frame from fh's header fields and raw
	// payload. fh.Flags()/fh.Stream() are already parsed; only the
	// payload needs interpreting.
	Deserialize(fh *FrameHeader) error
	// Serialize writes the frame's wire payload into fh, setting any
	// flags the frame implies (END_STREAM, END_HEADERS, ...).
	Serialize(fh *FrameHeader)
}

var framePools = [maxFrameType + 1]*sync.Pool{
	FrameData:         {New: func() interface{} { return &Data{} }},
	FrameHeaders:      {New: func() interface{} { return &Headers{} }},
	FramePriority:     {New: func() interface{} { return &Priority{} }},
	FrameResetStream:  {New: func() interface{} { return &RstStream{} }},
	FrameSettings:     {New: func() interface{} { return &Settings{} }},
	FramePushPromise:  {New: func() interface{} { return &PushPromise{} }},
	FramePing:         {New: func() interface{} { return &Ping{} }},
	FrameGoAway:       {New: func() interface{} { return &GoAway{} }},
	FrameWindowUpdate: {New: func() interface{} { return &WindowUpdate{} }},
	FrameContinuation: {New: func() interface{} { return &Continuation{} }},
}

// AcquireFrame returns a pooled, reset Frame implementation for t.
// Callers must release it via ReleaseFrame (done automatically by
// ReleaseFrameHeader for a frame attached to a header).
func AcquireFrame(t FrameType) Frame {
	fr := framePools[t].Get().(Frame)
	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its type's pool.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}
	fr.Reset()
	framePools[fr.Type()].Put(fr)
}

// FrameWithHeaders is implemented by the three frame types that carry a
// header block fragment (HEADERS, CONTINUATION, and PUSH_PROMISE), so the
// connection engine can accumulate a header block across frames without
// type-switching on every one.
type FrameWithHeaders interface {
	Frame
	HeaderBlockFragment() []byte
}
