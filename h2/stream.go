package http2

import "sync"

// StreamState is one of RFC 7540 §5.1's seven stream states.
type StreamState uint8

const (
	StateIdle StreamState = iota
	StateReservedLocal
	StateReservedRemote
	StateOpen
	StateHalfClosedLocal
	StateHalfClosedRemote
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReservedLocal:
		return "reserved_local"
	case StateReservedRemote:
		return "reserved_remote"
	case StateOpen:
		return "open"
	case StateHalfClosedLocal:
		return "half_closed_local"
	case StateHalfClosedRemote:
		return "half_closed_remote"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// DefaultInitialWindowSize is the window size RFC 7540 §6.9.2 mandates
// before any SETTINGS_INITIAL_WINDOW_SIZE is exchanged.
const DefaultInitialWindowSize = 65535

// Stream is one HTTP/2 stream's state-machine and flow-control record
// (https://httpwg.org/specs/rfc7540.html#StreamStates). Unlike frames and
// header fields, Streams are not pooled: NewStream allocates a fresh one
// per stream id, and Streams.Delete only drops it from the registry.
type Stream struct {
	mu sync.Mutex

	id    uint32
	state StreamState

	recvWindow int32
	sendWindow int32

	streamDep uint32
	exclusive bool
	weight    uint8

	// endHeadersSeen is not set or read by the engine; an interleaved
	// header block from another stream is detected by Conn's pending
	// header block instead.
	endHeadersSeen bool
}

// NewStream constructs a Stream in the idle state with default windows.
func NewStream(id uint32) *Stream {
	return &Stream{
		id:         id,
		state:      StateIdle,
		recvWindow: DefaultInitialWindowSize,
		sendWindow: DefaultInitialWindowSize,
		weight:     15,
	}
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open transitions idle -> open on first HEADERS.
func (s *Stream) Open() {
	s.mu.Lock()
	s.state = StateOpen
	s.mu.Unlock()
}

// HalfCloseLocal transitions open->half_closed_local or
// half_closed_remote->closed when the local side sends END_STREAM.
func (s *Stream) HalfCloseLocal() {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.state = StateHalfClosedLocal
	case StateHalfClosedRemote:
		s.state = StateClosed
	}
	s.mu.Unlock()
}

// HalfCloseRemote transitions open->half_closed_remote or
// half_closed_local->closed when the peer sends END_STREAM.
func (s *Stream) HalfCloseRemote() {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.state = StateHalfClosedRemote
	case StateHalfClosedLocal:
		s.state = StateClosed
	}
	s.mu.Unlock()
}

// Reset forces the stream directly to closed, from any non-idle state,
// as RST_STREAM does in either direction.
func (s *Stream) Reset() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// CanSendData reports whether a DATA frame may legally be sent now
// (open or half_closed_remote, per §6.1).
func (s *Stream) CanSendData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpen || s.state == StateHalfClosedRemote
}

// CanReceiveData reports whether a DATA frame may legally be received
// now (open or half_closed_local, per §6.1).
func (s *Stream) CanReceiveData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpen || s.state == StateHalfClosedLocal
}

// SetPriority records a PRIORITY frame's or HEADERS prefix's dependency
// info. The engine stores but never schedules by it, per SPEC_FULL.md's
// domain notes. When exclusive is set, the caller is responsible for
// reparenting any other stream that depended on dep first (see
// Streams.Reparent); this method only ever touches the single stream
// it's called on.
func (s *Stream) SetPriority(dep uint32, exclusive bool, weight uint8) {
	s.mu.Lock()
	s.streamDep, s.exclusive, s.weight = dep, exclusive, weight
	s.mu.Unlock()
}

// Dep reports the stream id this stream currently depends on, as last
// set by SetPriority.
func (s *Stream) Dep() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamDep
}

// Exclusive reports whether the last SetPriority call carried the
// EXCLUSIVE flag.
func (s *Stream) Exclusive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exclusive
}

// Weight reports the raw wire priority weight set by the last
// SetPriority call.
func (s *Stream) Weight() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weight
}

// AdjustSendWindow applies delta (which may be negative, as happens when
// SETTINGS_INITIAL_WINDOW_SIZE shrinks) to the stream's send window.
// Returns an error if the result would overflow the signed 31-bit range.
func (s *Stream) AdjustSendWindow(delta int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(s.sendWindow) + int64(delta)
	if next > maxWindowSize || next < -maxWindowSize-1 {
		return NewStreamError(FlowControlError, "send window overflow")
	}
	s.sendWindow = int32(next)
	return nil
}

// ConsumeSendWindow decrements the send window by n bytes of DATA about
// to be written; n must already have been checked against both the
// stream and connection windows.
func (s *Stream) ConsumeSendWindow(n int32) {
	s.mu.Lock()
	s.sendWindow -= n
	s.mu.Unlock()
}

func (s *Stream) SendWindow() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendWindow
}

// ConsumeRecvWindow decrements the receive window by n bytes of DATA
// just received, returning a FLOW_CONTROL_ERROR if it goes negative.
func (s *Stream) ConsumeRecvWindow(n int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recvWindow -= n
	if s.recvWindow < 0 {
		return NewStreamError(FlowControlError, "stream recv window exceeded")
	}
	return nil
}

// ReplenishRecvWindow adds n bytes back to the receive window, called
// once the application has consumed DATA and the engine emits a
// WINDOW_UPDATE to the peer.
func (s *Stream) ReplenishRecvWindow(n int32) {
	s.mu.Lock()
	s.recvWindow += n
	s.mu.Unlock()
}

func (s *Stream) RecvWindow() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvWindow
}
