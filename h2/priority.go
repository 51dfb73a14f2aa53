package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// Priority is the PRIORITY frame
// (https://httpwg.org/specs/rfc7540.html#PRIORITY): advisory stream
// prioritization. The engine parses and validates it (a stream cannot
// depend on itself) but otherwise treats priority as informational.
type Priority struct {
	streamDep uint32
	exclusive bool
	weight    uint8
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.streamDep = 0
	p.exclusive = false
	p.weight = 0
}

func (p *Priority) StreamDep() uint32   { return p.streamDep }
func (p *Priority) Exclusive() bool     { return p.exclusive }
func (p *Priority) Weight() uint8       { return p.weight }
func (p *Priority) SetStreamDep(v uint32) { p.streamDep = v }
func (p *Priority) SetExclusive(v bool)   { p.exclusive = v }
func (p *Priority) SetWeight(v uint8)     { p.weight = v }

func (p *Priority) Deserialize(fh *FrameHeader) error {
	if len(fh.payload) != 5 {
		return NewConnError(FrameSizeError, "PRIORITY: payload must be 5 bytes")
	}

	dep := http2utils.BytesToUint32(fh.payload[0:4])
	p.exclusive = dep&0x80000000 != 0
	p.streamDep = http2utils.ClearReservedBit(dep)
	p.weight = fh.payload[4]

	if p.streamDep == fh.Stream() {
		return NewStreamError(ProtocolError, "PRIORITY: stream cannot depend on itself")
	}
	return nil
}

func (p *Priority) Serialize(fh *FrameHeader) {
	var b [5]byte
	dep := p.streamDep
	if p.exclusive {
		dep |= 0x80000000
	}
	http2utils.Uint32ToBytes(b[0:4], dep)
	b[4] = p.weight
	fh.payload = append(fh.payload[:0], b[:]...)
}
