package asgi

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	http2 "github.com/bimmerbailey/ladybug/h2"
	"github.com/bimmerbailey/ladybug/h2/hpack"
	"github.com/stretchr/testify/require"
)

// helloHost drains the inbound request body then replies 200 "hi",
// exercising the full Dispatch -> outbound -> HEADERS/DATA path.
type helloHost struct{}

func (helloHost) Dispatch(ctx context.Context, scope Scope, inbound, outbound *Queue) {
	for {
		msg, err := inbound.Pop(ctx)
		if err != nil {
			return
		}
		if msg.Type == TypeHTTPDisconnect {
			return
		}
		if !msg.MoreBody {
			break
		}
	}
	_ = outbound.Push(ctx, Message{
		Type:    TypeHTTPResponseStart,
		Status:  200,
		Headers: []Header{{Name: "content-type", Value: "text/plain"}},
	})
	_ = outbound.Push(ctx, Message{Type: TypeHTTPResponseBody, Body: []byte("hi"), MoreBody: false})
}

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

func writeClientFrame(t *testing.T, bw *bufio.Writer, streamID uint32, flags http2.FrameFlags, fr http2.Frame) {
	t.Helper()
	fh := http2.AcquireFrameHeader()
	defer http2.ReleaseFrameHeader(fh)
	fh.SetStream(streamID)
	fh.SetFlags(flags)
	fh.SetFrame(fr)
	require.NoError(t, fh.WriteTo(bw))
	require.NoError(t, bw.Flush())
}

func readUntil(t *testing.T, br *bufio.Reader, want http2.FrameType) *http2.FrameHeader {
	t.Helper()
	for i := 0; i < 16; i++ {
		fh := http2.AcquireFrameHeader()
		fh.SetMaxLen(http2.DefaultMaxFrameSize)
		require.NoError(t, fh.ReadFrom(br))
		if fh.Type() == want {
			return fh
		}
		http2.ReleaseFrameHeader(fh)
	}
	t.Fatalf("did not see a %s frame within 16 frames", want)
	return nil
}

func TestBridgeEndToEndRequestResponse(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	cfg := http2.NewConfig()
	cfg.PingInterval = 0
	bridge := NewBridge(helloHost{}, cfg, Addr{Host: "127.0.0.1", Port: 51000}, Addr{Host: "127.0.0.1", Port: 443})
	conn := http2.NewConn(serverSide, cfg, bridge)

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve() }()

	cbw := bufio.NewWriter(clientSide)
	cbr := bufio.NewReader(clientSide)

	_, err := cbw.WriteString(http2.ClientPreface)
	require.NoError(t, err)
	require.NoError(t, cbw.Flush())

	settings := http2.AcquireFrame(http2.FrameSettings).(*http2.Settings)
	writeClientFrame(t, cbw, 0, 0, settings)

	block := clientEncodeRequest(t, "/greet")
	headers := http2.AcquireFrame(http2.FrameHeaders).(*http2.Headers)
	headers.SetHeaderBlockFragment(block)
	headers.SetEndHeaders(true)
	headers.SetEndStream(true)
	writeClientFrame(t, cbw, 1, http2.FlagEndHeaders|http2.FlagEndStream, headers)

	hfh := readUntil(t, cbr, http2.FrameHeaders)
	respHeaders := hfh.Frame().(*http2.Headers)

	dec := hpack.AcquireHPack()
	defer hpack.ReleaseHPack(dec)
	_, err = dec.Read(respHeaders.HeaderBlockFragment())
	require.NoError(t, err)

	byKey := map[string]string{}
	for _, f := range dec.Fields() {
		byKey[f.Key] = f.Value
	}
	require.Equal(t, "200", byKey[":status"])
	require.Equal(t, "text/plain", byKey["content-type"])
	http2.ReleaseFrameHeader(hfh)

	dfh := readUntil(t, cbr, http2.FrameData)
	data := dfh.Frame().(*http2.Data)
	require.Equal(t, "hi", string(data.Data()))
	require.True(t, data.EndStream())
	http2.ReleaseFrameHeader(dfh)

	require.NoError(t, clientSide.Close())
	select {
	case <-serveErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the client closed the connection")
	}
}
