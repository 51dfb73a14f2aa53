package http2

import (
	"bufio"
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, fh *FrameHeader) *FrameHeader {
	t.Helper()

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := fh.WriteTo(bw); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	out := AcquireFrameHeader()
	if err := out.ReadFrom(bufio.NewReader(&buf)); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return out
}

func TestDataFrameRoundTrip(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetStream(1)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData([]byte("hello world"))
	d.SetEndStream(true)
	fh.SetFrame(d)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got, ok := out.Frame().(*Data)
	if !ok {
		t.Fatalf("expected *Data, got %T", out.Frame())
	}
	if string(got.Data()) != "hello world" {
		t.Errorf("Data() = %q", got.Data())
	}
	if !got.EndStream() {
		t.Errorf("EndStream() = false, want true")
	}
	if out.Stream() != 1 {
		t.Errorf("Stream() = %d, want 1", out.Stream())
	}
}

func TestDataFramePadded(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetStream(3)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData([]byte("padded payload"))
	d.SetPadding(true)
	fh.SetFrame(d)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*Data)
	if string(got.Data()) != "padded payload" {
		t.Errorf("Data() = %q", got.Data())
	}
}

func TestHeadersFrameWithPriority(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetStream(5)

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaderBlockFragment([]byte{0x82, 0x86, 0x84})
	h.SetEndHeaders(true)
	h.SetEndStream(true)
	h.hasPriority = true
	h.streamDep = 1
	h.weight = 15
	fh.SetFrame(h)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*Headers)
	if !got.EndHeaders() || !got.EndStream() {
		t.Errorf("flags not preserved: endHeaders=%v endStream=%v", got.EndHeaders(), got.EndStream())
	}
	if got.StreamDep() != 1 || got.Weight() != 15 {
		t.Errorf("priority prefix not preserved: dep=%d weight=%d", got.StreamDep(), got.Weight())
	}
	if !bytes.Equal(got.HeaderBlockFragment(), []byte{0x82, 0x86, 0x84}) {
		t.Errorf("HeaderBlockFragment() = %x", got.HeaderBlockFragment())
	}
}

func TestSettingsFrame(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	s := AcquireFrame(FrameSettings).(*Settings)
	s.Add(SettingMaxConcurrentStreams, 100)
	s.Add(SettingInitialWindowSize, 65535)
	fh.SetFrame(s)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*Settings)
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}

	seen := map[SettingID]uint32{}
	got.Each(func(id SettingID, value uint32) { seen[id] = value })
	if seen[SettingMaxConcurrentStreams] != 100 {
		t.Errorf("SettingMaxConcurrentStreams = %d", seen[SettingMaxConcurrentStreams])
	}
	if seen[SettingInitialWindowSize] != 65535 {
		t.Errorf("SettingInitialWindowSize = %d", seen[SettingInitialWindowSize])
	}
}

func TestSettingsAckIsEmpty(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	s := AcquireFrame(FrameSettings).(*Settings)
	s.SetAck(true)
	fh.SetFrame(s)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*Settings)
	if !got.IsAck() {
		t.Errorf("IsAck() = false, want true")
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0 on ACK", got.Len())
	}
}

func TestSettingsRejectsInvalidEnablePush(t *testing.T) {
	fh := AcquireFrameHeader()
	fh.payload = []byte{0x00, byte(SettingEnablePush), 0, 0, 0, 2}
	defer ReleaseFrameHeader(fh)

	s := &Settings{}
	if err := s.Deserialize(fh); err == nil {
		t.Fatal("expected error for SETTINGS_ENABLE_PUSH=2")
	}
}

func TestWindowUpdateRejectsZeroIncrement(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.payload = []byte{0, 0, 0, 0}
	fh.stream = 1

	w := &WindowUpdate{}
	if err := w.Deserialize(fh); err == nil {
		t.Fatal("expected error for zero increment")
	}
}

func TestGoAwayFrame(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	g := AcquireFrame(FrameGoAway).(*GoAway)
	g.SetLastStreamID(41)
	g.SetCode(ProtocolError)
	g.SetDebugData([]byte("bad actor"))
	fh.SetFrame(g)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*GoAway)
	if got.LastStreamID() != 41 {
		t.Errorf("LastStreamID() = %d, want 41", got.LastStreamID())
	}
	if got.Code() != ProtocolError {
		t.Errorf("Code() = %v, want ProtocolError", got.Code())
	}
	if string(got.DebugData()) != "bad actor" {
		t.Errorf("DebugData() = %q", got.DebugData())
	}
}

func TestPingEchoesData(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	p := AcquireFrame(FramePing).(*Ping)
	p.SetData([8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	fh.SetFrame(p)

	out := roundTrip(t, fh)
	defer ReleaseFrameHeader(out)

	got := out.Frame().(*Ping)
	if got.Data() != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("Data() = %v", got.Data())
	}
}

func TestPreface(t *testing.T) {
	br := bufio.NewReader(bytes.NewBufferString(ClientPreface))
	if err := ReadPreface(br); err != nil {
		t.Fatalf("ReadPreface: %v", err)
	}

	br = bufio.NewReader(bytes.NewBufferString("GET / HTTP/1.1\r\n\r\n"))
	if err := ReadPreface(br); err == nil {
		t.Fatal("expected error for non-HTTP/2 preface")
	}
}

func TestFrameSizeExceedsMaxIsConnError(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetMaxLen(16)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	big := AcquireFrame(FrameData).(*Data)
	big.SetData(make([]byte, 32))
	fh.SetFrame(big)
	if err := fh.WriteTo(bw); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	_ = bw.Flush()

	in := AcquireFrameHeader()
	defer ReleaseFrameHeader(in)
	in.SetMaxLen(16)

	err := in.ReadFrom(bufio.NewReader(&buf))
	if err == nil {
		t.Fatal("expected frame size error")
	}
	herr, ok := err.(Error)
	if !ok || herr.Code != FrameSizeError || !herr.IsConnError() {
		t.Errorf("err = %#v, want conn-scoped FrameSizeError", err)
	}
}
