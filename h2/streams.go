package http2

import "sync"

// Streams is a connection's stream registry. The map and counters are
// guarded by mu because both the reader goroutine (creating streams on
// HEADERS, deleting them on closure) and the writer goroutine (looking
// streams up to send outbound DATA/HEADERS) access it; each Stream's own
// window/state fields are further guarded by its own mutex (stream.go).
type Streams struct {
	mu sync.RWMutex

	byID map[uint32]*Stream

	// openCount tracks streams in {open, half_closed_local,
	// half_closed_remote}: the set SETTINGS_MAX_CONCURRENT_STREAMS
	// bounds per §5.1.2.
	openCount int

	lastPeerStreamID  uint32
	nextLocalStreamID uint32

	// goingAway is set once a graceful Shutdown has begun; new peer
	// streams are refused from then on, matching the teacher's
	// writeGoAway flipping sc.state to connStateClosed.
	goingAway bool
}

// NewStreams returns an empty registry. nextLocalStreamID starts at 2
// (servers only ever use even-numbered streams, for PUSH_PROMISE, which
// this engine does not originate; see SPEC_FULL.md Non-goals).
func NewStreams() *Streams {
	return &Streams{
		byID:              make(map[uint32]*Stream),
		nextLocalStreamID: 2,
	}
}

// Get returns the stream for id, if any.
func (s *Streams) Get(id uint32) (*Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	return st, ok
}

// LastPeerStreamID is the highest peer-initiated stream id seen so far,
// the value a GOAWAY's last_stream_id field must report.
func (s *Streams) LastPeerStreamID() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPeerStreamID
}

// CreatePeerStream validates and registers a new peer-initiated stream
// (odd id, strictly greater than any previous one, within the
// concurrency limit) and transitions it to open. Advancing
// lastPeerStreamID to id is also what implements RFC 7540 §5.1.1: every
// odd id between the old high-water mark and id that the peer skipped is
// now implicitly closed, since ids are used strictly increasing and the
// peer can never legally open them later. Those skipped ids were never
// registered in byID in the first place, so there is nothing further to
// tear down for them — a PRIORITY or WINDOW_UPDATE that references one
// falls through to Idle/Get's ordinary "not found" handling, matching
// the teacher's own handleStreams loop, which skips the same streams
// inline when it sees a higher id arrive.
func (s *Streams) CreatePeerStream(id uint32, maxConcurrent uint32) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id%2 == 0 || id == 0 {
		return nil, NewConnError(ProtocolError, "peer used an even or zero stream id")
	}
	if id <= s.lastPeerStreamID {
		return nil, NewConnError(ProtocolError, "peer stream id did not increase monotonically")
	}
	if s.goingAway {
		return nil, NewStreamError(RefusedStreamError, "connection is going away")
	}
	if uint32(s.openCount) >= maxConcurrent {
		return nil, NewStreamError(RefusedStreamError, "SETTINGS_MAX_CONCURRENT_STREAMS exceeded")
	}

	st := NewStream(id)
	st.Open()
	s.byID[id] = st
	s.lastPeerStreamID = id
	s.openCount++
	return st, nil
}

// Idle returns (and lazily creates, as idle) the stream record for id,
// used to validate PRIORITY frames that reference a stream that was
// never opened.
func (s *Streams) Idle(id uint32) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.byID[id]; ok {
		return st
	}
	st := NewStream(id)
	s.byID[id] = st
	return st
}

// CountOpen reports how many streams are currently open,
// half_closed_local, or half_closed_remote.
func (s *Streams) CountOpen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openCount
}

// Transition applies fn (one of Stream's state-transition methods) and
// keeps openCount consistent with the resulting state.
func (s *Streams) Transition(st *Stream, fn func()) {
	wasOpen := isCountedOpen(st.State())
	fn()
	nowOpen := isCountedOpen(st.State())

	if wasOpen == nowOpen {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if wasOpen && !nowOpen {
		s.openCount--
	} else {
		s.openCount++
	}
}

func isCountedOpen(st StreamState) bool {
	return st == StateOpen || st == StateHalfClosedLocal || st == StateHalfClosedRemote
}

// Delete removes a closed stream from the registry once both its state
// is closed and no pending outbound message remains for it (the caller
// is responsible for checking the latter).
func (s *Streams) Delete(id uint32) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// AdjustAllSendWindows applies delta to every currently tracked stream's
// send window, implementing SETTINGS_INITIAL_WINDOW_SIZE's retroactive
// adjustment (§6.9.2).
func (s *Streams) AdjustAllSendWindows(delta int32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.byID {
		if err := st.AdjustSendWindow(delta); err != nil {
			return err
		}
	}
	return nil
}

// Reparent implements the exclusive-dependency half of §5.3.1's
// prioritization tree: every stream currently depending on dependsOn is
// rewritten to depend on dependentID instead, before dependentID's own
// SetPriority(dependsOn, ...) installs the new edge. Called only when
// the triggering PRIORITY/HEADERS frame sets the EXCLUSIVE flag.
func (s *Streams) Reparent(dependentID, dependsOn uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, st := range s.byID {
		if id == dependentID {
			continue
		}
		if st.Dep() == dependsOn {
			st.SetPriority(dependentID, st.Exclusive(), st.Weight())
		}
	}
}

// Snapshot returns every stream currently tracked, for diagnostics and
// for the graceful-shutdown drain loop.
func (s *Streams) Snapshot() []*Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Stream, 0, len(s.byID))
	for _, st := range s.byID {
		out = append(out, st)
	}
	return out
}

// SetGoingAway refuses any further peer-initiated stream, the
// registry-side half of Conn.Shutdown's graceful GOAWAY drain.
func (s *Streams) SetGoingAway() {
	s.mu.Lock()
	s.goingAway = true
	s.mu.Unlock()
}

// CountAtOrBelow reports how many tracked streams with id <= ref are
// still counted open, the condition Conn.Shutdown waits on before
// closing the transport: every stream the peer could have been expecting
// an answer for at the moment the first GOAWAY went out has finished.
func (s *Streams) CountAtOrBelow(ref uint32) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for id, st := range s.byID {
		if id <= ref && isCountedOpen(st.State()) {
			n++
		}
	}
	return n
}

