package http2

import "testing"

func TestStreamLifecycleLocalFirst(t *testing.T) {
	st := NewStream(1)
	if st.State() != StateIdle {
		t.Fatalf("new stream state = %s, want idle", st.State())
	}

	st.Open()
	if st.State() != StateOpen {
		t.Fatalf("after Open state = %s, want open", st.State())
	}
	if !st.CanSendData() || !st.CanReceiveData() {
		t.Fatal("open stream should allow sending and receiving DATA")
	}

	st.HalfCloseLocal()
	if st.State() != StateHalfClosedLocal {
		t.Fatalf("after HalfCloseLocal state = %s, want half_closed_local", st.State())
	}
	if st.CanSendData() {
		t.Fatal("half_closed_local must not allow sending DATA")
	}
	if !st.CanReceiveData() {
		t.Fatal("half_closed_local must still allow receiving DATA")
	}

	st.HalfCloseRemote()
	if st.State() != StateClosed {
		t.Fatalf("after both halves close state = %s, want closed", st.State())
	}
}

func TestStreamLifecycleRemoteFirst(t *testing.T) {
	st := NewStream(3)
	st.Open()
	st.HalfCloseRemote()
	if st.State() != StateHalfClosedRemote {
		t.Fatalf("state = %s, want half_closed_remote", st.State())
	}
	if st.CanReceiveData() {
		t.Fatal("half_closed_remote must not allow receiving DATA")
	}
	if !st.CanSendData() {
		t.Fatal("half_closed_remote must still allow sending DATA")
	}
	st.HalfCloseLocal()
	if st.State() != StateClosed {
		t.Fatalf("state = %s, want closed", st.State())
	}
}

func TestStreamResetFromAnyState(t *testing.T) {
	st := NewStream(5)
	st.Open()
	st.Reset()
	if st.State() != StateClosed {
		t.Fatalf("state = %s, want closed", st.State())
	}
}

func TestSendWindowAdjustOverflow(t *testing.T) {
	st := NewStream(1)
	if err := st.AdjustSendWindow(maxWindowSize - DefaultInitialWindowSize); err != nil {
		t.Fatalf("unexpected error growing to max: %v", err)
	}
	if err := st.AdjustSendWindow(1); err == nil {
		t.Fatal("expected overflow error past 2^31-1")
	}
}

func TestRecvWindowGoesNegative(t *testing.T) {
	st := NewStream(1)
	if err := st.ConsumeRecvWindow(DefaultInitialWindowSize + 1); err == nil {
		t.Fatal("expected flow control error consuming past the window")
	}
}

func TestRecvWindowReplenish(t *testing.T) {
	st := NewStream(1)
	if err := st.ConsumeRecvWindow(100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.ReplenishRecvWindow(100)
	if got := st.RecvWindow(); got != DefaultInitialWindowSize {
		t.Fatalf("recv window = %d, want %d", got, DefaultInitialWindowSize)
	}
}
