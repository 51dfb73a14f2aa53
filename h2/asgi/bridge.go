package asgi

import (
	"context"
	"strconv"
	"sync"

	http2 "github.com/bimmerbailey/ladybug/h2"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultQueueCapacity = 32
	defaultHighWaterMark = 16
)

// requestStream is the per-stream bookkeeping the bridge keeps between
// HandleHeaders and the stream's eventual completion or reset.
type requestStream struct {
	inbound  *Queue
	outbound *Queue
	cancel   context.CancelFunc

	mu      sync.Mutex
	body    bytebufferpool.ByteBuffer // accumulated inbound body, for diagnostics/Content-Length-style bookkeeping
	unacked int32                     // bytes received since the last WINDOW_UPDATE we sent
}

// Bridge implements http2.Handler: it turns decoded HEADERS/DATA into
// ASGI scope/message traffic for a Host, and turns the Host's outbound
// ASGI messages back into HEADERS/DATA frames (spec §4.5).
type Bridge struct {
	host   Host
	cfg    *http2.Config
	client Addr
	server Addr

	queueCapacity int
	highWaterMark int32

	mu      sync.Mutex
	streams map[uint32]*requestStream
}

// NewBridge returns a Bridge that dispatches every peer-initiated stream
// on conn to host. client/server describe the transport endpoints the
// scope's "client"/"server" fields report.
func NewBridge(host Host, cfg *http2.Config, client, server Addr) *Bridge {
	if cfg == nil {
		cfg = http2.NewConfig()
	}
	return &Bridge{
		host:          host,
		cfg:           cfg,
		client:        client,
		server:        server,
		queueCapacity: defaultQueueCapacity,
		highWaterMark: defaultHighWaterMark,
		streams:       make(map[uint32]*requestStream),
	}
}

func (b *Bridge) get(id uint32) (*requestStream, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rs, ok := b.streams[id]
	return rs, ok
}

func (b *Bridge) delete(id uint32) {
	b.mu.Lock()
	delete(b.streams, id)
	b.mu.Unlock()
}

// HandleHeaders implements http2.Handler.
func (b *Bridge) HandleHeaders(c *http2.Conn, stream *http2.Stream, fields []http2.HeaderField, endStream bool) {
	scope, err := BuildScope(fields, b.client, b.server, stream.ID(), b.cfg.ExposeStreamID)
	if err != nil {
		code := http2.ProtocolError
		if herr, ok := err.(http2.Error); ok {
			code = herr.Code
		}
		_ = c.ResetStream(stream.ID(), code)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs := &requestStream{
		inbound:  NewQueue(b.queueCapacity),
		outbound: NewQueue(b.queueCapacity),
		cancel:   cancel,
	}

	b.mu.Lock()
	b.streams[stream.ID()] = rs
	b.mu.Unlock()

	go func() {
		defer rs.outbound.Close()
		b.host.Dispatch(ctx, scope, rs.inbound, rs.outbound)
	}()
	go b.drainOutbound(c, stream, rs)

	if endStream {
		_ = rs.inbound.Push(ctx, Message{Type: TypeHTTPRequest, MoreBody: false})
		rs.inbound.Close()
	}
}

// HandleData implements http2.Handler.
func (b *Bridge) HandleData(c *http2.Conn, stream *http2.Stream, data []byte, endStream bool) {
	rs, ok := b.get(stream.ID())
	if !ok {
		return
	}

	chunk := append([]byte(nil), data...)

	rs.mu.Lock()
	rs.body.Write(data)
	rs.unacked += int32(len(data))
	rs.mu.Unlock()

	if err := rs.inbound.Push(context.Background(), Message{Type: TypeHTTPRequest, Body: chunk, MoreBody: !endStream}); err != nil {
		return
	}

	if endStream {
		rs.inbound.Close()
		return
	}

	// Backpressure (spec §4.5): once the inbound queue sits at or above
	// its high-water mark, withhold WINDOW_UPDATE so the peer's send
	// window is left to run dry instead of the queue growing unbounded.
	if int32(rs.inbound.Len()) >= b.highWaterMark {
		return
	}

	rs.mu.Lock()
	n := rs.unacked
	rs.unacked = 0
	rs.mu.Unlock()
	_ = c.ReplenishWindow(stream.ID(), n)
	_ = c.ReplenishWindow(0, n)
}

// HandleReset implements http2.Handler.
func (b *Bridge) HandleReset(c *http2.Conn, stream *http2.Stream, code http2.ErrorCode) {
	rs, ok := b.get(stream.ID())
	if !ok {
		return
	}
	b.delete(stream.ID())
	rs.cancel()
	_ = rs.inbound.Push(context.Background(), Message{Type: TypeHTTPDisconnect})
	rs.inbound.Close()
}

// drainOutbound pops the Host's outbound messages and turns them into
// HEADERS/DATA frames, enforcing the response protocol (spec §4.5):
// exactly one http.response.start, zero or more http.response.body,
// the last with more_body=false, an empty final body collapsed onto the
// HEADERS frame's END_STREAM rather than an extra empty DATA frame.
func (b *Bridge) drainOutbound(c *http2.Conn, stream *http2.Stream, rs *requestStream) {
	defer b.delete(stream.ID())

	var pendingHeaders []http2.HeaderField
	started := false
	headersWritten := false
	finished := false

	for {
		msg, err := rs.outbound.Pop(context.Background())
		if err != nil {
			if !finished {
				_ = c.ResetStream(stream.ID(), http2.InternalError)
			}
			return
		}

		switch msg.Type {
		case TypeHTTPResponseStart:
			if started {
				_ = c.ResetStream(stream.ID(), http2.InternalError)
				return
			}
			started = true
			pendingHeaders = make([]http2.HeaderField, 0, len(msg.Headers)+1)
			pendingHeaders = append(pendingHeaders, http2.HeaderField{Name: ":status", Value: strconv.Itoa(msg.Status)})
			for _, h := range msg.Headers {
				pendingHeaders = append(pendingHeaders, http2.HeaderField{Name: h.Name, Value: h.Value})
			}

		case TypeHTTPResponseBody:
			if !started || finished {
				_ = c.ResetStream(stream.ID(), http2.InternalError)
				return
			}
			endStream := !msg.MoreBody

			if !headersWritten {
				headersWritten = true
				emptyFinal := len(msg.Body) == 0 && endStream
				if err := c.WriteHeaders(stream.ID(), pendingHeaders, emptyFinal); err != nil {
					return
				}
				if emptyFinal {
					finished = true
					return
				}
			}

			if len(msg.Body) > 0 {
				if err := c.WriteData(stream.ID(), msg.Body, endStream); err != nil {
					return
				}
			} else if endStream {
				if err := c.WriteData(stream.ID(), nil, true); err != nil {
					return
				}
			}

			if endStream {
				finished = true
				return
			}

		default:
			// Anything else on this queue (e.g. a misbehaving host
			// echoing lifespan messages here) is simply ignored.
		}
	}
}
