package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// WindowUpdate is the WINDOW_UPDATE frame
// (https://httpwg.org/specs/rfc7540.html#WINDOW_UPDATE): grants additional
// flow-control credit, either to a stream or (on stream 0) to the whole
// connection.
type WindowUpdate struct {
	increment uint32
}

func (w *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (w *WindowUpdate) Reset() { w.increment = 0 }

func (w *WindowUpdate) Increment() uint32    { return w.increment }
func (w *WindowUpdate) SetIncrement(n uint32) { w.increment = n }

func (w *WindowUpdate) Deserialize(fh *FrameHeader) error {
	if len(fh.payload) != 4 {
		return NewConnError(FrameSizeError, "WINDOW_UPDATE: payload must be 4 bytes")
	}
	w.increment = http2utils.ClearReservedBit(http2utils.BytesToUint32(fh.payload))
	if w.increment == 0 {
		if fh.Stream() == 0 {
			return NewConnError(ProtocolError, "WINDOW_UPDATE: zero increment on connection")
		}
		return NewStreamError(ProtocolError, "WINDOW_UPDATE: zero increment on stream")
	}
	return nil
}

func (w *WindowUpdate) Serialize(fh *FrameHeader) {
	fh.payload = http2utils.AppendUint32Bytes(fh.payload[:0], w.increment)
}
