package http2

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/bimmerbailey/ladybug/h2/hpack"
	"github.com/stretchr/testify/require"
)

// echoHandler answers every request with a 200 and a fixed body, driving
// Conn's public WriteHeaders/WriteData surface the way asgi.Bridge does.
type echoHandler struct {
	gotHeaders chan []HeaderField
	gotReset   chan ErrorCode
}

func newEchoHandler() *echoHandler {
	return &echoHandler{
		gotHeaders: make(chan []HeaderField, 4),
		gotReset:   make(chan ErrorCode, 4),
	}
}

func (h *echoHandler) HandleHeaders(c *Conn, stream *Stream, fields []HeaderField, endStream bool) {
	cp := append([]HeaderField(nil), fields...)
	h.gotHeaders <- cp
	_ = c.WriteHeaders(stream.ID(), []HeaderField{{Name: ":status", Value: "200"}}, false)
	_ = c.WriteData(stream.ID(), []byte("hello"), true)
}

func (h *echoHandler) HandleData(c *Conn, stream *Stream, data []byte, endStream bool) {}

func (h *echoHandler) HandleReset(c *Conn, stream *Stream, code ErrorCode) {
	h.gotReset <- code
}

// clientEncode HPACK-encodes a request's pseudo-headers using a fresh
// encoder, the way a real HTTP/2 client would for the first request on a
// connection (empty dynamic table).
func clientEncodeRequest(t *testing.T, path string) []byte {
	t.Helper()
	hp := hpack.AcquireHPack()
	defer hpack.ReleaseHPack(hp)
	hp.Add(":method", "GET")
	hp.Add(":scheme", "https")
	hp.Add(":path", path)
	hp.Add(":authority", "example.test")
	block, err := hp.Write(nil)
	require.NoError(t, err)
	return block
}

func writeClientFrame(t *testing.T, bw *bufio.Writer, streamID uint32, flags FrameFlags, fr Frame) {
	t.Helper()
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetStream(streamID)
	fh.SetFlags(flags)
	fh.SetFrame(fr)
	require.NoError(t, fh.WriteTo(bw))
	require.NoError(t, bw.Flush())
}

// readUntil reads frames from br until one of the given types is found,
// skipping over SETTINGS/ACK traffic the server interleaves.
func readUntil(t *testing.T, br *bufio.Reader, want FrameType) *FrameHeader {
	t.Helper()
	for i := 0; i < 16; i++ {
		fh := AcquireFrameHeader()
		fh.SetMaxLen(DefaultMaxFrameSize)
		require.NoError(t, fh.ReadFrom(br))
		if fh.Type() == want {
			return fh
		}
		ReleaseFrameHeader(fh)
	}
	t.Fatalf("did not see a %s frame within 16 frames", want)
	return nil
}

func TestConnServeHandlesRequestEndToEnd(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	handler := newEchoHandler()
	cfg := NewConfig()
	cfg.PingInterval = 0
	cfg.IdleTimeout = 0
	cfg.HandshakeTimeout = 0
	conn := NewConn(serverSide, cfg, handler)

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve() }()

	cbw := bufio.NewWriter(clientSide)
	cbr := bufio.NewReader(clientSide)

	_, err := cbw.WriteString(ClientPreface)
	require.NoError(t, err)
	require.NoError(t, cbw.Flush())

	settings := AcquireFrame(FrameSettings).(*Settings)
	writeClientFrame(t, cbw, 0, 0, settings)

	block := clientEncodeRequest(t, "/hello")
	headers := AcquireFrame(FrameHeaders).(*Headers)
	headers.SetHeaderBlockFragment(block)
	headers.SetEndHeaders(true)
	headers.SetEndStream(true)
	writeClientFrame(t, cbw, 1, FlagEndHeaders|FlagEndStream, headers)

	select {
	case fields := <-handler.gotHeaders:
		require.Len(t, fields, 4)
		byName := map[string]string{}
		for _, f := range fields {
			byName[f.Name] = f.Value
		}
		require.Equal(t, "GET", byName[":method"])
		require.Equal(t, "/hello", byName[":path"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler.HandleHeaders was never called")
	}

	hfh := readUntil(t, cbr, FrameHeaders)
	respHeaders := hfh.Frame().(*Headers)
	require.False(t, respHeaders.EndStream())
	ReleaseFrameHeader(hfh)

	dfh := readUntil(t, cbr, FrameData)
	data := dfh.Frame().(*Data)
	require.Equal(t, "hello", string(data.Data()))
	require.True(t, data.EndStream())
	ReleaseFrameHeader(dfh)

	require.NoError(t, clientSide.Close())
	select {
	case <-serveErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the client closed the connection")
	}
}

// stallingHandler holds a stream open until release is closed, so a test
// can observe Shutdown waiting on it before the transport closes.
type stallingHandler struct {
	release chan struct{}
}

func (h *stallingHandler) HandleHeaders(c *Conn, stream *Stream, fields []HeaderField, endStream bool) {
	go func() {
		<-h.release
		_ = c.WriteHeaders(stream.ID(), []HeaderField{{Name: ":status", Value: "200"}}, false)
		_ = c.WriteData(stream.ID(), []byte("done"), true)
	}()
}

func (h *stallingHandler) HandleData(c *Conn, stream *Stream, data []byte, endStream bool) {}
func (h *stallingHandler) HandleReset(c *Conn, stream *Stream, code ErrorCode)             {}

func TestConnShutdownWaitsForOpenStreamThenCloses(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	handler := &stallingHandler{release: make(chan struct{})}
	cfg := NewConfig()
	cfg.PingInterval = 0
	conn := NewConn(serverSide, cfg, handler)

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve() }()

	cbw := bufio.NewWriter(clientSide)
	cbr := bufio.NewReader(clientSide)

	_, err := cbw.WriteString(ClientPreface)
	require.NoError(t, err)
	require.NoError(t, cbw.Flush())

	settings := AcquireFrame(FrameSettings).(*Settings)
	writeClientFrame(t, cbw, 0, 0, settings)

	block := clientEncodeRequest(t, "/slow")
	headers := AcquireFrame(FrameHeaders).(*Headers)
	headers.SetHeaderBlockFragment(block)
	headers.SetEndHeaders(true)
	headers.SetEndStream(true)
	writeClientFrame(t, cbw, 1, FlagEndHeaders|FlagEndStream, headers)

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- conn.Shutdown(context.Background())
	}()

	// After the server's SETTINGS traffic (skipped by readUntil), the
	// GOAWAY arrives immediately; the response HEADERS/DATA only arrive
	// once release is closed below.
	gfh := readUntil(t, cbr, FrameGoAway)
	ga := gfh.Frame().(*GoAway)
	require.Equal(t, NoError, ga.Code())
	ReleaseFrameHeader(gfh)

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned before the open stream finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(handler.release)

	hfh := readUntil(t, cbr, FrameHeaders)
	ReleaseFrameHeader(hfh)
	dfh := readUntil(t, cbr, FrameData)
	ReleaseFrameHeader(dfh)

	select {
	case err := <-shutdownDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the open stream finished")
	}

	select {
	case <-serveErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown closed the transport")
	}
}

func TestConnRejectsEvenClientStreamID(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	handler := newEchoHandler()
	cfg := NewConfig()
	cfg.PingInterval = 0
	conn := NewConn(serverSide, cfg, handler)

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve() }()

	cbw := bufio.NewWriter(clientSide)
	_, err := cbw.WriteString(ClientPreface)
	require.NoError(t, err)
	require.NoError(t, cbw.Flush())

	settings := AcquireFrame(FrameSettings).(*Settings)
	writeClientFrame(t, cbw, 0, 0, settings)

	block := clientEncodeRequest(t, "/")
	headers := AcquireFrame(FrameHeaders).(*Headers)
	headers.SetHeaderBlockFragment(block)
	headers.SetEndHeaders(true)
	headers.SetEndStream(true)
	// Stream id 2 is server-reserved; a client using it is a connection
	// error per §5.1.1.
	writeClientFrame(t, cbw, 2, FlagEndHeaders|FlagEndStream, headers)

	select {
	case err := <-serveErr:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after a connection-level protocol error")
	}
}
