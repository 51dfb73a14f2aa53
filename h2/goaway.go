package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// GoAway is the GOAWAY frame (https://httpwg.org/specs/rfc7540.html#GOAWAY):
// announces that the sender will process no new streams above
// LastStreamID and is beginning a graceful (or immediate, on error)
// connection shutdown.
type GoAway struct {
	lastStreamID uint32
	code         ErrorCode
	debugData    []byte
}

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.lastStreamID = 0
	g.code = NoError
	g.debugData = g.debugData[:0]
}

func (g *GoAway) LastStreamID() uint32   { return g.lastStreamID }
func (g *GoAway) SetLastStreamID(id uint32) {
	g.lastStreamID = http2utils.ClearReservedBit(id)
}
func (g *GoAway) Code() ErrorCode        { return g.code }
func (g *GoAway) SetCode(c ErrorCode)    { g.code = c }
func (g *GoAway) DebugData() []byte      { return g.debugData }
func (g *GoAway) SetDebugData(b []byte)  { g.debugData = append(g.debugData[:0], b...) }

func (g *GoAway) Deserialize(fh *FrameHeader) error {
	if len(fh.payload) < 8 {
		return NewConnError(FrameSizeError, "GOAWAY: payload shorter than 8 bytes")
	}
	g.lastStreamID = http2utils.ClearReservedBit(http2utils.BytesToUint32(fh.payload[0:4]))
	g.code = ErrorCode(http2utils.BytesToUint32(fh.payload[4:8]))
	g.debugData = append(g.debugData[:0], fh.payload[8:]...)
	return nil
}

func (g *GoAway) Serialize(fh *FrameHeader) {
	fh.payload = http2utils.Resize(fh.payload[:0], 8+len(g.debugData))
	http2utils.Uint32ToBytes(fh.payload[0:4], g.lastStreamID)
	http2utils.Uint32ToBytes(fh.payload[4:8], uint32(g.code))
	copy(fh.payload[8:], g.debugData)
}
