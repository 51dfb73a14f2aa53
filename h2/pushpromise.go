package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// PushPromise is the PUSH_PROMISE frame
// (https://httpwg.org/specs/rfc7540.html#PUSH_PROMISE). The engine never
// originates server push (SETTINGS_ENABLE_PUSH is always advertised as 0
// in Serve's initial SETTINGS) but still decodes it for
// completeness and to reject a misbehaving peer correctly.
type PushPromise struct {
	hasPadding  bool
	endHeaders  bool
	promisedID  uint32
	rawHeaders  []byte
}

func (p *PushPromise) Type() FrameType { return FramePushPromise }

func (p *PushPromise) Reset() {
	p.hasPadding = false
	p.endHeaders = false
	p.promisedID = 0
	p.rawHeaders = p.rawHeaders[:0]
}

func (p *PushPromise) EndHeaders() bool        { return p.endHeaders }
func (p *PushPromise) SetEndHeaders(v bool)    { p.endHeaders = v }
func (p *PushPromise) PromisedStreamID() uint32 { return p.promisedID }
func (p *PushPromise) SetPromisedStreamID(id uint32) {
	p.promisedID = http2utils.ClearReservedBit(id)
}
func (p *PushPromise) HeaderBlockFragment() []byte { return p.rawHeaders }

func (p *PushPromise) Deserialize(fh *FrameHeader) error {
	p.hasPadding = fh.Flags().Has(FlagPadded)
	p.endHeaders = fh.Flags().Has(FlagEndHeaders)

	payload := fh.payload
	length := len(payload)

	if p.hasPadding {
		if length < 1 {
			return NewConnError(FrameSizeError, "PUSH_PROMISE: missing pad length")
		}
		length--
		pad := int(payload[0])
		payload = payload[1:]
		if pad > length {
			// Illegal padding is a wire decode error (spec §7 category 1):
			// the frame's own length field is inconsistent, so framing
			// for the whole connection is no longer trustworthy.
			return NewConnError(FrameSizeError, "PUSH_PROMISE: padding out of range")
		}
		length -= pad
	}

	if length < 4 {
		return NewConnError(FrameSizeError, "PUSH_PROMISE: missing promised stream id")
	}
	p.promisedID = http2utils.ClearReservedBit(http2utils.BytesToUint32(payload[0:4]))
	payload = payload[4:]
	length -= 4

	if p.hasPadding {
		payload = payload[:length]
	}

	p.rawHeaders = append(p.rawHeaders[:0], payload...)
	return nil
}

func (p *PushPromise) Serialize(fh *FrameHeader) {
	if p.endHeaders {
		fh.flags = fh.flags.Add(FlagEndHeaders)
	}

	body := fh.payload[:0]
	var idBytes [4]byte
	http2utils.Uint32ToBytes(idBytes[:], p.promisedID)
	body = append(body, idBytes[:]...)
	body = append(body, p.rawHeaders...)

	if p.hasPadding {
		fh.flags = fh.flags.Add(FlagPadded)
		fh.payload = http2utils.AddPadding(body)
		return
	}
	fh.payload = body
}
