package http2

import "testing"

func TestCreatePeerStreamRejectsEvenID(t *testing.T) {
	s := NewStreams()
	if _, err := s.CreatePeerStream(2, 250); err == nil {
		t.Fatal("expected error for even stream id")
	}
}

func TestCreatePeerStreamRequiresIncreasingIDs(t *testing.T) {
	s := NewStreams()
	if _, err := s.CreatePeerStream(3, 250); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreatePeerStream(1, 250); err == nil {
		t.Fatal("expected error for non-increasing stream id")
	}
	if _, err := s.CreatePeerStream(3, 250); err == nil {
		t.Fatal("expected error for repeated stream id")
	}
}

func TestCreatePeerStreamEnforcesConcurrencyLimit(t *testing.T) {
	s := NewStreams()
	if _, err := s.CreatePeerStream(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreatePeerStream(3, 1); err == nil {
		t.Fatal("expected REFUSED_STREAM once at the concurrency limit")
	}
	if s.CountOpen() != 1 {
		t.Fatalf("CountOpen = %d, want 1", s.CountOpen())
	}
}

func TestTransitionTracksOpenCount(t *testing.T) {
	s := NewStreams()
	st, err := s.CreatePeerStream(1, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CountOpen() != 1 {
		t.Fatalf("CountOpen = %d, want 1", s.CountOpen())
	}

	s.Transition(st, st.HalfCloseRemote)
	if s.CountOpen() != 1 {
		t.Fatalf("half_closed_remote should still count as open, got %d", s.CountOpen())
	}

	s.Transition(st, st.HalfCloseLocal)
	if s.CountOpen() != 0 {
		t.Fatalf("closed stream should not count as open, got %d", s.CountOpen())
	}
}

func TestAdjustAllSendWindows(t *testing.T) {
	s := NewStreams()
	a, _ := s.CreatePeerStream(1, 250)
	b, _ := s.CreatePeerStream(3, 250)

	if err := s.AdjustAllSendWindows(1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SendWindow() != DefaultInitialWindowSize+1000 {
		t.Fatalf("a.SendWindow() = %d", a.SendWindow())
	}
	if b.SendWindow() != DefaultInitialWindowSize+1000 {
		t.Fatalf("b.SendWindow() = %d", b.SendWindow())
	}
}

func TestReparentMovesExistingDependentsExclusively(t *testing.T) {
	s := NewStreams()
	a, _ := s.CreatePeerStream(1, 250)
	b, _ := s.CreatePeerStream(3, 250)
	c, _ := s.CreatePeerStream(5, 250)

	a.SetPriority(0, false, 15)
	b.SetPriority(0, false, 15)

	// c becomes an exclusive child of 0: every other stream that
	// depended on 0 (a and b) must be reparented onto c first.
	s.Reparent(c.ID(), 0)
	c.SetPriority(0, true, 15)

	if got := a.Dep(); got != c.ID() {
		t.Fatalf("a.Dep() = %d, want %d", got, c.ID())
	}
	if got := b.Dep(); got != c.ID() {
		t.Fatalf("b.Dep() = %d, want %d", got, c.ID())
	}
	if got := c.Dep(); got != 0 {
		t.Fatalf("c.Dep() = %d, want 0", got)
	}
}

func TestSnapshotAndDelete(t *testing.T) {
	s := NewStreams()
	s.CreatePeerStream(1, 250)
	s.CreatePeerStream(3, 250)

	if got := len(s.Snapshot()); got != 2 {
		t.Fatalf("Snapshot length = %d, want 2", got)
	}

	s.Delete(1)
	if got := len(s.Snapshot()); got != 1 {
		t.Fatalf("Snapshot length after delete = %d, want 1", got)
	}
	if _, ok := s.Get(1); ok {
		t.Fatal("stream 1 should be gone after Delete")
	}
}
