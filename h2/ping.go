package http2

// Ping is the PING frame (https://httpwg.org/specs/rfc7540.html#PING):
// an 8-byte opaque payload echoed back by the receiver unless it carries
// the ACK flag, used for liveness checks and RTT estimation.
type Ping struct {
	ack  bool
	data [8]byte
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) IsAck() bool    { return p.ack }
func (p *Ping) SetAck(v bool) { p.ack = v }
func (p *Ping) Data() [8]byte  { return p.data }
func (p *Ping) SetData(b [8]byte) { p.data = b }

func (p *Ping) Deserialize(fh *FrameHeader) error {
	if len(fh.payload) != 8 {
		return NewConnError(FrameSizeError, "PING: payload must be 8 bytes")
	}
	if fh.Stream() != 0 {
		return NewConnError(ProtocolError, "PING: must be sent on stream 0")
	}
	p.ack = fh.Flags().Has(FlagAck)
	copy(p.data[:], fh.payload)
	return nil
}

func (p *Ping) Serialize(fh *FrameHeader) {
	if p.ack {
		fh.flags = fh.flags.Add(FlagAck)
	}
	fh.payload = append(fh.payload[:0], p.data[:]...)
}
