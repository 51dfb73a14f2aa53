package http2

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bimmerbailey/ladybug/h2/hpack"
	"github.com/bimmerbailey/ladybug/h2/http2utils"
)

// ErrConnClosed is returned by outbound calls made after the connection
// has finished shutting down.
var ErrConnClosed = errors.New("http2: connection closed")

// pendingHeaderBlock accumulates a HEADERS (or PUSH_PROMISE) frame plus
// any CONTINUATIONs until END_HEADERS arrives; RFC 7540 §6.10 forbids any
// other frame from being interleaved while one is open.
type pendingHeaderBlock struct {
	streamID  uint32
	buf       []byte
	endStream bool
}

// Conn runs the HTTP/2 engine for one accepted connection: the reader
// loop that decodes frames and drives the stream table, and the writer
// loop that owns the HPACK encoder and the wire. Handler is invoked from
// the reader loop; Handler's own worker goroutines call back into Conn's
// WriteHeaders/WriteData/ResetStream/ReplenishWindow, which hand work to
// the writer loop through a channel so neither the encoder nor the
// socket is ever touched concurrently.
type Conn struct {
	nc  net.Conn
	br  *bufio.Reader
	bw  *bufio.Writer
	cfg *Config

	streams *Streams
	handler Handler

	hpackDec *hpack.HPack
	hpackEnc *hpack.HPack

	windowMu       sync.Mutex
	windowCond     *sync.Cond
	connSendWindow int32
	connRecvWindow int32

	peerMaxFrameSize      uint32
	peerInitialWindowSize uint32
	peerMaxConcurrent     uint32

	pending *pendingHeaderBlock

	// outCh carries response DATA/HEADERS from Handler worker goroutines.
	// ctrlCh carries frames the reader goroutine itself must answer with
	// (SETTINGS/PING acks, refusal RST_STREAM, error GOAWAY) and is
	// checked first whenever the writer picks its next command, so a
	// protocol-mandated reply does not queue behind pending response
	// traffic; a command the writer has already started (including a DATA
	// write waiting for flow-control credit) still runs to completion
	// first. Both are only ever read by the
	// single writer goroutine, which is the only goroutine allowed to
	// touch bw or the HPACK encoder.
	outCh  chan outboundCmd
	ctrlCh chan outboundCmd

	closeCh chan struct{}

	lastActivity atomicTime

	// closeRef and goingAway implement the graceful-shutdown drain:
	// Shutdown stores the last peer stream id seen at the moment it sent
	// GOAWAY, then waits until every stream at or below that id has
	// finished before closing the transport. Mirrors the teacher's
	// serverConn.closeRef.
	closeRef  atomic.Uint32
	goingAway atomic.Bool

	// pingOutstanding tracks whether the writer loop's last keepalive
	// PING has been ACKed yet; if the next PingInterval tick finds one
	// still outstanding, the peer is presumed dead and the connection is
	// torn down.
	pingOutstanding atomic.Bool
}

// NewConn wraps an accepted, already-negotiated (ALPN "h2") net.Conn.
func NewConn(nc net.Conn, cfg *Config, handler Handler) *Conn {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := &Conn{
		nc:                    nc,
		br:                    bufio.NewReaderSize(nc, 32*1024),
		bw:                    bufio.NewWriterSize(nc, 32*1024),
		cfg:                   cfg,
		streams:               NewStreams(),
		handler:               handler,
		hpackDec:              hpack.AcquireHPack(),
		hpackEnc:              hpack.AcquireHPack(),
		connSendWindow:        DefaultInitialWindowSize,
		connRecvWindow:        DefaultInitialWindowSize,
		peerMaxFrameSize:      DefaultMaxFrameSize,
		peerInitialWindowSize: DefaultInitialWindowSize,
		peerMaxConcurrent:     DefaultMaxConcurrentStreams,
		outCh:                 make(chan outboundCmd, 64),
		ctrlCh:                make(chan outboundCmd, 16),
		closeCh:               make(chan struct{}),
	}
	c.windowCond = sync.NewCond(&c.windowMu)
	c.hpackDec.SetMaxTableSize(int(cfg.HeaderTableSize))
	return c
}

// Serve consumes the connection preface, exchanges initial SETTINGS, and
// runs the engine until the peer disconnects or a connection-scoped
// error occurs. It always releases the underlying net.Conn before
// returning.
func (c *Conn) Serve() error {
	defer c.shutdown()

	if c.cfg.HandshakeTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	}
	if err := ReadPreface(c.br); err != nil {
		return err
	}

	initial := AcquireFrame(FrameSettings).(*Settings)
	initial.Add(SettingMaxConcurrentStreams, c.cfg.MaxConcurrentStreams)
	initial.Add(SettingMaxFrameSize, c.cfg.MaxFrameSize)
	initial.Add(SettingInitialWindowSize, c.cfg.InitialWindowSize)
	initial.Add(SettingHeaderTableSize, c.cfg.HeaderTableSize)
	initial.Add(SettingEnablePush, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Written from the writer goroutine so the reader loop can take in
		// the peer's own SETTINGS while this write is still in progress.
		if err := c.writeFrame(0, 0, initial); err != nil {
			_ = c.nc.Close()
			return
		}
		c.writeLoop()
	}()

	err := c.readLoop()

	close(c.closeCh)
	// Wake any worker goroutine parked in waitSendWindow so it observes
	// closeCh and returns instead of waiting on a broadcast that will
	// never come now that the connection is going away.
	c.windowCond.Broadcast()
	wg.Wait()
	return err
}

func (c *Conn) shutdown() {
	hpack.ReleaseHPack(c.hpackDec)
	hpack.ReleaseHPack(c.hpackEnc)
	for _, st := range c.streams.Snapshot() {
		c.streams.Transition(st, st.Reset)
		if c.handler != nil {
			c.handler.HandleReset(c, st, InternalError)
		}
	}
	_ = c.nc.Close()
}

func (c *Conn) readLoop() error {
	// Serve armed HandshakeTimeout before reading the preface; that
	// deadline stays in force until the peer's first SETTINGS frame.
	handshakePending := c.cfg.HandshakeTimeout > 0
	for {
		if c.cfg.IdleTimeout > 0 && !handshakePending {
			_ = c.nc.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
		}

		fh := AcquireFrameHeader()
		fh.SetMaxLen(c.cfg.MaxFrameSize)

		err := fh.ReadFrom(c.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				ReleaseFrameHeader(fh)
				return nil
			}
			// The 9-byte frame header (including the stream id) is
			// always parsed before a type's Deserialize runs, so
			// fh.Stream() is valid even when Deserialize itself failed
			// partway through the payload.
			streamID := fh.Stream()
			ReleaseFrameHeader(fh)
			if herr, ok := err.(Error); ok && !herr.IsConnError() {
				var rerr error
				if st, ok := c.streams.Get(streamID); ok {
					rerr = c.resetStream(st, herr)
				} else {
					rerr = c.refuseOrReset(streamID, herr)
				}
				if rerr != nil {
					return rerr
				}
				continue
			}
			c.handleEngineError(err)
			return err
		}

		c.lastActivity.set(time.Now())

		if handshakePending && fh.Type() == FrameSettings {
			handshakePending = false
			if c.cfg.IdleTimeout <= 0 {
				_ = c.nc.SetReadDeadline(time.Time{})
			}
		}

		if err := c.dispatch(fh); err != nil {
			ReleaseFrameHeader(fh)
			c.handleEngineError(err)
			if connErr, ok := err.(Error); ok && !connErr.IsConnError() {
				continue
			}
			return err
		}
		ReleaseFrameHeader(fh)
	}
}

// dispatch validates frame-sequencing rules common to every type (the
// "no frame but CONTINUATION while a header block is open" rule) and
// routes to the per-type handler.
func (c *Conn) dispatch(fh *FrameHeader) error {
	if c.pending != nil && fh.Type() != FrameContinuation {
		return NewConnError(ProtocolError, "expected CONTINUATION, header block left open")
	}

	switch fh.Type() {
	case FrameData:
		return c.handleData(fh)
	case FrameHeaders:
		return c.handleHeaders(fh)
	case FramePriority:
		return c.handlePriority(fh)
	case FrameResetStream:
		return c.handleRstStream(fh)
	case FrameSettings:
		return c.handleSettings(fh)
	case FramePushPromise:
		return NewConnError(ProtocolError, "client must not send PUSH_PROMISE")
	case FramePing:
		return c.handlePing(fh)
	case FrameGoAway:
		return c.handleGoAway(fh)
	case FrameWindowUpdate:
		return c.handleWindowUpdate(fh)
	case FrameContinuation:
		return c.handleContinuation(fh)
	default:
		return nil // unknown frame types are ignored per §4.1
	}
}

func (c *Conn) handleHeaders(fh *FrameHeader) error {
	h := fh.Frame().(*Headers)

	st, err := c.streams.CreatePeerStream(fh.Stream(), c.cfg.MaxConcurrentStreams)
	if err != nil {
		return c.refuseOrReset(fh.Stream(), err)
	}
	if h.hasPriority {
		if h.StreamDep() == fh.Stream() {
			return c.resetStream(st, NewStreamError(ProtocolError, "stream cannot depend on itself"))
		}
		if h.Exclusive() {
			c.streams.Reparent(fh.Stream(), h.StreamDep())
		}
		st.SetPriority(h.StreamDep(), h.Exclusive(), h.Weight())
	}

	c.pending = &pendingHeaderBlock{
		streamID:  fh.Stream(),
		buf:       append([]byte(nil), h.HeaderBlockFragment()...),
		endStream: h.EndStream(),
	}

	if h.EndHeaders() {
		return c.finishHeaderBlock()
	}
	return nil
}

func (c *Conn) handleContinuation(fh *FrameHeader) error {
	if c.pending == nil || fh.Stream() != c.pending.streamID {
		return NewConnError(ProtocolError, "CONTINUATION does not match open header block")
	}

	cont := fh.Frame().(*Continuation)
	c.pending.buf = append(c.pending.buf, cont.HeaderBlockFragment()...)

	if cont.EndHeaders() {
		return c.finishHeaderBlock()
	}
	return nil
}

func (c *Conn) finishHeaderBlock() error {
	p := c.pending
	c.pending = nil

	rest, err := c.hpackDec.Read(p.buf)
	if err != nil {
		return NewConnError(CompressionError, err.Error())
	}
	if len(rest) != 0 {
		return NewConnError(CompressionError, "trailing bytes after header block")
	}

	st, ok := c.streams.Get(p.streamID)
	if !ok {
		return nil // stream was reset concurrently; drop silently
	}

	fields := make([]HeaderField, len(c.hpackDec.Fields()))
	for i, f := range c.hpackDec.Fields() {
		fields[i] = HeaderField{Name: f.Key, Value: f.Value, Sensitive: f.Sensitive}
	}

	if p.endStream {
		c.streams.Transition(st, st.HalfCloseRemote)
	}

	if c.handler != nil {
		c.handler.HandleHeaders(c, st, fields, p.endStream)
	}
	return nil
}

func (c *Conn) handleData(fh *FrameHeader) error {
	st, ok := c.streams.Get(fh.Stream())
	if !ok {
		return c.refuseOrReset(fh.Stream(), NewStreamError(StreamClosedError, "DATA on unknown stream"))
	}
	if !st.CanReceiveData() {
		return c.resetStream(st, NewStreamError(StreamClosedError, "DATA on stream not open for receiving"))
	}

	d := fh.Frame().(*Data)
	n := int32(len(d.Data()))

	if err := st.ConsumeRecvWindow(n); err != nil {
		return c.resetStream(st, err)
	}

	c.windowMu.Lock()
	c.connRecvWindow -= n
	overflowed := c.connRecvWindow < 0
	c.windowMu.Unlock()
	if overflowed {
		return NewConnError(FlowControlError, "connection recv window exceeded")
	}

	if d.EndStream() {
		c.streams.Transition(st, st.HalfCloseRemote)
	}

	if c.handler != nil {
		c.handler.HandleData(c, st, d.Data(), d.EndStream())
	}
	return nil
}

func (c *Conn) handlePriority(fh *FrameHeader) error {
	p := fh.Frame().(*Priority)
	st := c.streams.Idle(fh.Stream())
	if p.Exclusive() {
		c.streams.Reparent(fh.Stream(), p.StreamDep())
	}
	st.SetPriority(p.StreamDep(), p.Exclusive(), p.Weight())
	return nil
}

func (c *Conn) handleRstStream(fh *FrameHeader) error {
	r := fh.Frame().(*RstStream)
	st, ok := c.streams.Get(fh.Stream())
	if !ok {
		if fh.Stream() == 0 || fh.Stream() > c.streams.LastPeerStreamID() {
			return NewConnError(ProtocolError, "RST_STREAM on idle stream")
		}
		return nil // closed and already dropped from the registry; ignore per §5.1
	}
	c.streams.Transition(st, st.Reset)
	if c.handler != nil {
		c.handler.HandleReset(c, st, r.Code())
	}
	c.streams.Delete(fh.Stream())
	return nil
}

func (c *Conn) handleSettings(fh *FrameHeader) error {
	s := fh.Frame().(*Settings)
	if s.IsAck() {
		return nil
	}

	var windowDelta int32
	haveWindowDelta := false

	s.Each(func(id SettingID, value uint32) {
		switch id {
		case SettingHeaderTableSize:
			c.hpackEnc.SetMaxTableSize(int(value))
		case SettingMaxConcurrentStreams:
			c.peerMaxConcurrent = value
		case SettingInitialWindowSize:
			windowDelta = int32(value) - int32(c.peerInitialWindowSize)
			haveWindowDelta = true
			c.peerInitialWindowSize = value
		case SettingMaxFrameSize:
			c.peerMaxFrameSize = value
		}
	})

	if haveWindowDelta {
		if err := c.streams.AdjustAllSendWindows(windowDelta); err != nil {
			return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE overflows a stream send window")
		}
		c.windowCond.Broadcast()
	}

	return c.enqueueCtrl(outboundCmd{kind: outSettingsAck})
}

func (c *Conn) handlePing(fh *FrameHeader) error {
	p := fh.Frame().(*Ping)
	if p.IsAck() {
		c.pingOutstanding.Store(false)
		return nil
	}
	return c.enqueueCtrl(outboundCmd{kind: outPingReply, pingData: p.Data()})
}

// handleGoAway notes that the peer will open no further streams. The
// engine keeps answering the streams already open (mirroring the
// teacher's own GOAWAY handling in serverConn, which logs and keeps
// draining); the reader loop exits naturally once the peer closes the
// transport.
func (c *Conn) handleGoAway(fh *FrameHeader) error {
	ga := fh.Frame().(*GoAway)
	c.goingAway.Store(true)
	c.streams.SetGoingAway()
	if c.cfg.Debug {
		c.cfg.Logger.Printf("peer sent GOAWAY(last_stream=%d, code=%s)", ga.LastStreamID(), ga.Code())
	}
	return nil
}

func (c *Conn) handleWindowUpdate(fh *FrameHeader) error {
	w := fh.Frame().(*WindowUpdate)

	if fh.Stream() == 0 {
		c.windowMu.Lock()
		next := int64(c.connSendWindow) + int64(w.Increment())
		if next > maxWindowSize {
			c.windowMu.Unlock()
			return NewConnError(FlowControlError, "connection send window overflow")
		}
		c.connSendWindow = int32(next)
		c.windowCond.Broadcast()
		c.windowMu.Unlock()
		return nil
	}

	st, ok := c.streams.Get(fh.Stream())
	if !ok {
		return nil // recently closed stream; ignore per §5.1
	}
	if err := st.AdjustSendWindow(int32(w.Increment())); err != nil {
		return c.resetStream(st, err)
	}
	c.windowCond.Broadcast()
	return nil
}

// refuseOrReset answers a stream-scoped creation failure with
// RST_STREAM rather than tearing the whole connection down. Used where
// no *Stream was ever registered for the failure (it was refused before
// or during registration), so there's nothing to tear down locally
// beyond the wire reply.
func (c *Conn) refuseOrReset(streamID uint32, err error) error {
	herr, ok := err.(Error)
	if !ok || herr.IsConnError() {
		return err
	}
	return c.enqueueCtrl(outboundCmd{kind: outReset, streamID: streamID, code: herr.Code})
}

// resetStream answers a stream-scoped error on an already-registered
// stream: it transitions st to closed, drops it from the registry, and
// replies with RST_STREAM. The caller treats a nil return as "continue
// processing" rather than tearing down the whole connection over a
// single stream's problem; only enqueueCtrl failing (the control channel
// itself is gone) or err being connection-scoped propagates further.
func (c *Conn) resetStream(st *Stream, err error) error {
	herr, ok := err.(Error)
	if !ok || herr.IsConnError() {
		return err
	}
	c.streams.Transition(st, st.Reset)
	c.streams.Delete(st.ID())
	return c.enqueueCtrl(outboundCmd{kind: outReset, streamID: st.ID(), code: herr.Code})
}

func (c *Conn) handleEngineError(err error) {
	herr, ok := err.(Error)
	if !ok {
		return
	}
	if herr.IsConnError() {
		_ = c.enqueueCtrl(outboundCmd{kind: outGoAway, code: herr.Code, debugData: http2utils.FastStringToBytes(herr.Message)})
	}
	// Stream-scoped errors never reach here: every call site that can
	// produce one answers through refuseOrReset/resetStream (or
	// readLoop's own ReadFrom error handling) before returning, so by
	// the time dispatch()'s result lands here it's already a connection
	// error or nil.
}

// enqueueCtrl hands a control-frame reply to the writer loop. Unlike
// enqueue (used by Handler workers for response traffic), this never
// blocks on backpressure: ctrlCh is checked ahead of outCh so a
// protocol-mandated reply does not queue behind pending response traffic,
// and the reader loop must never block on its own replies (a full ctrlCh
// is reported as ErrConnClosed).
func (c *Conn) enqueueCtrl(cmd outboundCmd) error {
	select {
	case c.ctrlCh <- cmd:
		return nil
	case <-c.closeCh:
		return ErrConnClosed
	default:
		return ErrConnClosed
	}
}

// writeFrame performs the actual wire write. It is called only from the
// writer goroutine (the initial SETTINGS Serve hands it, applyOutbound,
// and the keepalive PING), the only goroutine allowed to touch bw.
func (c *Conn) writeFrame(streamID uint32, flags FrameFlags, fr Frame) error {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetStream(streamID)
	fh.SetFlags(flags)
	fh.SetFrame(fr)
	if err := fh.WriteTo(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) writeLoop() {
	ticker := (*time.Ticker)(nil)
	if c.cfg.PingInterval > 0 {
		ticker = time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
	}

	var tickerC <-chan time.Time
	if ticker != nil {
		tickerC = ticker.C
	}

	for {
		// ctrlCh is checked on its own first, so when a control reply and
		// response traffic are both waiting, the control reply is written
		// first. A command already being applied, including a DATA write
		// parked in waitSendWindow, still finishes before ctrlCh is read.
		select {
		case cmd := <-c.ctrlCh:
			if err := c.applyOutbound(cmd); err != nil {
				return
			}
			continue
		case <-c.closeCh:
			return
		default:
		}

		select {
		case <-c.closeCh:
			return
		case cmd := <-c.ctrlCh:
			if err := c.applyOutbound(cmd); err != nil {
				return
			}
		case cmd := <-c.outCh:
			if err := c.applyOutbound(cmd); err != nil {
				return
			}
		case <-tickerC:
			if c.pingOutstanding.Load() {
				// The peer never ACKed the previous keepalive PING
				// within a full interval; treat it as gone.
				_ = c.nc.Close()
				return
			}
			if time.Since(c.lastActivity.get()) < c.cfg.PingInterval {
				continue // a frame arrived within the interval; no PING due
			}
			p := AcquireFrame(FramePing).(*Ping)
			c.pingOutstanding.Store(true)
			_ = c.writeFrame(0, 0, p)
		}
	}
}

func (c *Conn) applyOutbound(cmd outboundCmd) error {
	switch cmd.kind {
	case outHeaders:
		return c.writeHeadersNow(cmd)
	case outData:
		return c.writeDataNow(cmd)
	case outReset:
		rst := AcquireFrame(FrameResetStream).(*RstStream)
		rst.SetCode(cmd.code)
		return c.writeFrame(cmd.streamID, 0, rst)
	case outWindowUpdate:
		wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
		wu.SetIncrement(uint32(cmd.increment))
		return c.writeFrame(cmd.streamID, 0, wu)
	case outSettingsAck:
		ack := AcquireFrame(FrameSettings).(*Settings)
		ack.SetAck(true)
		return c.writeFrame(0, 0, ack)
	case outPingReply:
		reply := AcquireFrame(FramePing).(*Ping)
		reply.SetAck(true)
		reply.SetData(cmd.pingData)
		return c.writeFrame(0, 0, reply)
	case outGoAway:
		ga := AcquireFrame(FrameGoAway).(*GoAway)
		ga.SetLastStreamID(c.streams.LastPeerStreamID())
		ga.SetCode(cmd.code)
		ga.SetDebugData(cmd.debugData)
		return c.writeFrame(0, 0, ga)
	}
	return nil
}

func (c *Conn) writeHeadersNow(cmd outboundCmd) error {
	for _, hf := range cmd.headers {
		if hf.Sensitive {
			c.hpackEnc.AddSensitive(hf.Name, hf.Value)
		} else {
			c.hpackEnc.Add(hf.Name, hf.Value)
		}
	}
	block, err := c.hpackEnc.Write(nil)
	if err != nil {
		return err
	}

	maxChunk := int(c.peerMaxFrameSize)
	first := block
	rest := []byte(nil)
	if len(first) > maxChunk {
		first, rest = block[:maxChunk], block[maxChunk:]
	}

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaderBlockFragment(first)
	h.SetEndStream(cmd.endStream)
	h.SetEndHeaders(len(rest) == 0)
	if err := c.writeFrame(cmd.streamID, 0, h); err != nil {
		return err
	}

	for len(rest) > 0 {
		chunk := rest
		if len(chunk) > maxChunk {
			chunk = rest[:maxChunk]
		}
		rest = rest[len(chunk):]

		cont := AcquireFrame(FrameContinuation).(*Continuation)
		cont.SetHeaderBlockFragment(chunk)
		cont.SetEndHeaders(len(rest) == 0)
		if err := c.writeFrame(cmd.streamID, 0, cont); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) writeDataNow(cmd outboundCmd) error {
	st, ok := c.streams.Get(cmd.streamID)
	if !ok {
		return nil
	}

	data := cmd.data
	maxChunk := int(c.peerMaxFrameSize)

	for {
		allowed := c.waitSendWindow(st, len(data))
		if allowed < 0 {
			return ErrConnClosed
		}

		chunkLen := allowed
		if chunkLen > maxChunk {
			chunkLen = maxChunk
		}
		if chunkLen > len(data) {
			chunkLen = len(data)
		}

		last := chunkLen == len(data)
		d := AcquireFrame(FrameData).(*Data)
		d.SetData(data[:chunkLen])
		d.SetEndStream(last && cmd.endStream)

		st.ConsumeSendWindow(int32(chunkLen))
		c.windowMu.Lock()
		c.connSendWindow -= int32(chunkLen)
		c.windowMu.Unlock()

		if err := c.writeFrame(cmd.streamID, 0, d); err != nil {
			return err
		}

		data = data[chunkLen:]
		if len(data) == 0 {
			if cmd.endStream {
				c.streams.Transition(st, st.HalfCloseLocal)
			}
			return nil
		}
	}
}

// waitSendWindow blocks until both the stream and connection send
// windows have at least 1 byte of credit (or there is nothing left to
// send), returning how many bytes may be written right now. Returns -1
// if the connection closed while waiting.
func (c *Conn) waitSendWindow(st *Stream, want int) int {
	if want == 0 {
		return 0
	}

	c.windowMu.Lock()
	defer c.windowMu.Unlock()

	for {
		select {
		case <-c.closeCh:
			return -1
		default:
		}

		connW := c.connSendWindow
		streamW := st.SendWindow()

		if connW > 0 && streamW > 0 {
			allowed := int(connW)
			if int(streamW) < allowed {
				allowed = int(streamW)
			}
			if allowed > want {
				allowed = want
			}
			return allowed
		}

		c.windowCond.Wait()
	}
}

// WriteHeaders queues a response (or trailer) header block for
// stream id. Safe to call from any goroutine.
func (c *Conn) WriteHeaders(streamID uint32, headers []HeaderField, endStream bool) error {
	return c.enqueue(outboundCmd{kind: outHeaders, streamID: streamID, headers: headers, endStream: endStream})
}

// WriteData queues response body bytes for stream id, chunked to the
// peer's MAX_FRAME_SIZE and paced by flow control. Safe to call from any
// goroutine; it returns once the command is queued, blocking only while
// outCh is full. Waiting for flow-control credit happens inside the
// writer loop, not in the caller.
func (c *Conn) WriteData(streamID uint32, data []byte, endStream bool) error {
	return c.enqueue(outboundCmd{kind: outData, streamID: streamID, data: data, endStream: endStream})
}

// ResetStream queues an RST_STREAM for streamID with the given code.
func (c *Conn) ResetStream(streamID uint32, code ErrorCode) error {
	return c.enqueue(outboundCmd{kind: outReset, streamID: streamID, code: code})
}

// ReplenishWindow credits n bytes back to this engine's receive window
// for streamID (or the connection as a whole, if streamID is 0) and
// queues the WINDOW_UPDATE granting the peer those n bytes. The ASGI
// bridge calls this as inbound DATA arrives while its request queue is
// below the high-water mark, which is how the engine implements the
// backpressure SPEC_FULL.md describes: withholding this call keeps the
// peer's send window from refilling.
func (c *Conn) ReplenishWindow(streamID uint32, n int32) error {
	if n <= 0 {
		return nil
	}
	if streamID == 0 {
		c.windowMu.Lock()
		c.connRecvWindow += n
		c.windowMu.Unlock()
	} else if st, ok := c.streams.Get(streamID); ok {
		st.ReplenishRecvWindow(n)
	}
	return c.enqueue(outboundCmd{kind: outWindowUpdate, streamID: streamID, increment: n})
}

// GoAway sends a GOAWAY announcing code as the reason no further streams
// will be processed, without waiting for anything to drain. Most callers
// that want an orderly shutdown should use Shutdown instead.
func (c *Conn) GoAway(code ErrorCode, debugData []byte) error {
	return c.enqueue(outboundCmd{kind: outGoAway, code: code, debugData: debugData})
}

// Shutdown performs the graceful, two-phase GOAWAY drain the teacher's
// serverConn.closeRef implements: it records the highest peer stream id
// seen so far, refuses any stream opened after this point, announces
// NoError to the peer, and then waits for every stream at or below that
// id to finish before closing the transport. Returns early with ctx's
// error if the deadline passes first, still closing the connection.
func (c *Conn) Shutdown(ctx context.Context) error {
	ref := c.streams.LastPeerStreamID()
	c.closeRef.Store(ref)
	c.goingAway.Store(true)
	c.streams.SetGoingAway()

	if err := c.GoAway(NoError, []byte("server shutting down")); err != nil {
		return c.nc.Close()
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for c.streams.CountAtOrBelow(ref) > 0 {
		select {
		case <-c.closeCh:
			return nil
		case <-ctx.Done():
			_ = c.nc.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return c.nc.Close()
}

func (c *Conn) enqueue(cmd outboundCmd) error {
	select {
	case c.outCh <- cmd:
		return nil
	case <-c.closeCh:
		return ErrConnClosed
	}
}

// atomicTime is a tiny helper around an RWMutex-guarded time.Time; the
// engine uses it only to record when the last frame was seen, which the
// writer loop reads to decide whether a keepalive PING is due, so a
// channel or atomic.Value would be overkill.
type atomicTime struct {
	mu sync.RWMutex
	t  time.Time
}

func (a *atomicTime) set(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomicTime) get() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.t
}
