package http2

import (
	"bufio"
	"io"
	"sync"

	"github.com/bimmerbailey/ladybug/h2/http2utils"
)

// DefaultMaxFrameSize is the smallest legal value for SETTINGS_MAX_FRAME_SIZE
// (https://httpwg.org/specs/rfc7540.html#SettingsParameters) and the size
// the engine assumes until a peer's SETTINGS frame raises it.
const DefaultMaxFrameSize = 1 << 14

// FrameHeader is the 9-byte frame header plus its decoded payload Frame.
// It is pooled: acquire one with AcquireFrameHeader, and release it with
// ReleaseFrameHeader once both the header and its Frame are no longer
// needed.
type FrameHeader struct {
	length uint32
	kind   FrameType
	flags  FrameFlags
	stream uint32

	// maxLen bounds the payload this header is allowed to decode,
	// mirroring the connection's SETTINGS_MAX_FRAME_SIZE.
	maxLen uint32

	rawHeader [9]byte
	payload   []byte

	fr Frame
}

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{maxLen: DefaultMaxFrameSize}
	},
}

// AcquireFrameHeader returns a pooled, zeroed FrameHeader with maxLen set
// to the default maximum frame size.
func AcquireFrameHeader() *FrameHeader {
	fh := frameHeaderPool.Get().(*FrameHeader)
	return fh
}

// ReleaseFrameHeader resets fh, releases its decoded Frame (if any) back
// to its own pool, and returns fh to the FrameHeader pool.
func ReleaseFrameHeader(fh *FrameHeader) {
	if fh == nil {
		return
	}
	if fh.fr != nil {
		ReleaseFrame(fh.fr)
		fh.fr = nil
	}
	fh.length = 0
	fh.kind = 0
	fh.flags = 0
	fh.stream = 0
	fh.maxLen = DefaultMaxFrameSize
	fh.payload = fh.payload[:0]
	frameHeaderPool.Put(fh)
}

func (fh *FrameHeader) Type() FrameType   { return fh.kind }
func (fh *FrameHeader) Flags() FrameFlags { return fh.flags }
func (fh *FrameHeader) Stream() uint32    { return fh.stream }
func (fh *FrameHeader) Len() uint32       { return fh.length }
func (fh *FrameHeader) Frame() Frame      { return fh.fr }

// SetMaxLen sets the largest payload length fh will accept while reading,
// normally SETTINGS_MAX_FRAME_SIZE as negotiated for the connection.
func (fh *FrameHeader) SetMaxLen(n uint32) { fh.maxLen = n }

// SetStream sets the stream identifier this header will be written with.
func (fh *FrameHeader) SetStream(id uint32) { fh.stream = http2utils.ClearReservedBit(id) }

// SetFlags sets the flags byte this header will be written with.
func (fh *FrameHeader) SetFlags(f FrameFlags) { fh.flags = f }

func (fh *FrameHeader) checkLen() error {
	if fh.length > fh.maxLen {
		return NewConnError(FrameSizeError, "frame length exceeds SETTINGS_MAX_FRAME_SIZE")
	}
	return nil
}

// ReadFrom reads one frame (9-byte header + payload) from br, decodes its
// type-specific payload into a freshly acquired Frame, and stores it on
// fh. The connection preface is not a frame and must be consumed by the
// caller before the first call to ReadFrom.
func (fh *FrameHeader) ReadFrom(br *bufio.Reader) error {
	header, err := br.Peek(9)
	if err != nil {
		return err
	}
	if _, err := br.Discard(9); err != nil {
		return err
	}

	copy(fh.rawHeader[:], header)
	fh.length = http2utils.BytesToUint24(header[0:3])
	fh.kind = FrameType(header[3])
	fh.flags = FrameFlags(header[4])
	fh.stream = http2utils.ClearReservedBit(http2utils.BytesToUint32(header[5:9]))

	if err := fh.checkLen(); err != nil {
		return err
	}

	fh.payload = http2utils.Resize(fh.payload, int(fh.length))
	if fh.length > 0 {
		if _, err := io.ReadFull(br, fh.payload); err != nil {
			return err
		}
	}

	if fh.kind > maxFrameType {
		// Unknown frame types are ignored per §4.1, but callers still
		// need a non-nil Frame to avoid nil checks everywhere.
		fh.fr = AcquireFrame(FrameData)
		fh.fr.Reset()
		return nil
	}

	fh.fr = AcquireFrame(fh.kind)
	return fh.fr.Deserialize(fh)
}

// WriteTo serializes fh.fr (if set) into fh's payload buffer and writes
// the 9-byte header followed by the payload to bw.
func (fh *FrameHeader) WriteTo(bw *bufio.Writer) error {
	if fh.fr != nil {
		fh.payload = fh.payload[:0]
		fh.fr.Serialize(fh)
	}

	fh.length = uint32(len(fh.payload))

	var header [9]byte
	http2utils.Uint24ToBytes(header[0:3], fh.length)
	header[3] = byte(fh.kind)
	header[4] = byte(fh.flags)
	http2utils.Uint32ToBytes(header[5:9], fh.stream)

	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if len(fh.payload) > 0 {
		if _, err := bw.Write(fh.payload); err != nil {
			return err
		}
	}
	return nil
}

// SetFrame attaches fr to fh, setting fh's type to match. fh takes
// ownership of fr for the purposes of ReleaseFrameHeader.
func (fh *FrameHeader) SetFrame(fr Frame) {
	fh.fr = fr
	fh.kind = fr.Type()
}
