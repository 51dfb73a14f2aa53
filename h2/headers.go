package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// Headers is the HEADERS frame
// (https://httpwg.org/specs/rfc7540.html#HEADERS): opens a stream and
// carries a (possibly partial) HPACK-encoded header block. When
// END_HEADERS is not set, subsequent CONTINUATION frames carry the rest
// of the block.
type Headers struct {
	hasPadding bool
	hasPriority bool

	streamDep uint32
	exclusive bool
	weight    uint8

	endStream  bool
	endHeaders bool

	rawHeaders []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.hasPadding = false
	h.hasPriority = false
	h.streamDep = 0
	h.exclusive = false
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) EndStream() bool       { return h.endStream }
func (h *Headers) SetEndStream(v bool)   { h.endStream = v }
func (h *Headers) EndHeaders() bool      { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool)  { h.endHeaders = v }
func (h *Headers) SetPadding(v bool)     { h.hasPadding = v }

// HeaderBlockFragment returns the raw HPACK-encoded bytes carried by this
// frame; it satisfies FrameWithHeaders.
func (h *Headers) HeaderBlockFragment() []byte { return h.rawHeaders }

// SetHeaderBlockFragment replaces the raw HPACK-encoded bytes to write.
func (h *Headers) SetHeaderBlockFragment(b []byte) {
	h.rawHeaders = append(h.rawHeaders[:0], b...)
}

// StreamDep and Exclusive expose the optional PRIORITY fields that may be
// prefixed onto a HEADERS frame (§6.2); Weight() is the raw wire value
// (actual weight = Weight()+1).
func (h *Headers) StreamDep() uint32 { return h.streamDep }
func (h *Headers) Exclusive() bool   { return h.exclusive }
func (h *Headers) Weight() uint8     { return h.weight }

func (h *Headers) Deserialize(fh *FrameHeader) error {
	h.endStream = fh.Flags().Has(FlagEndStream)
	h.endHeaders = fh.Flags().Has(FlagEndHeaders)
	h.hasPadding = fh.Flags().Has(FlagPadded)
	h.hasPriority = fh.Flags().Has(FlagPriority)

	payload := fh.payload
	length := len(payload)

	if h.hasPadding {
		if length < 1 {
			return NewConnError(FrameSizeError, "HEADERS: missing pad length")
		}
		length--
		pad := int(payload[0])
		payload = payload[1:]
		if pad > length {
			// Illegal padding is a wire decode error (spec §7 category 1):
			// the frame's own length field is inconsistent, so framing
			// for the whole connection is no longer trustworthy.
			return NewConnError(FrameSizeError, "HEADERS: padding out of range")
		}
		length -= pad
	}

	if h.hasPriority {
		if length < 5 {
			return NewConnError(FrameSizeError, "HEADERS: missing priority prefix")
		}
		dep := http2utils.BytesToUint32(payload[0:4])
		h.exclusive = dep&0x80000000 != 0
		h.streamDep = http2utils.ClearReservedBit(dep)
		h.weight = payload[4]
		payload = payload[5:]
		length -= 5
	}

	if h.hasPadding {
		payload = payload[:length]
	}

	h.rawHeaders = append(h.rawHeaders[:0], payload...)
	return nil
}

func (h *Headers) Serialize(fh *FrameHeader) {
	if h.endStream {
		fh.flags = fh.flags.Add(FlagEndStream)
	}
	if h.endHeaders {
		fh.flags = fh.flags.Add(FlagEndHeaders)
	}

	body := fh.payload[:0]

	if h.hasPriority {
		fh.flags = fh.flags.Add(FlagPriority)
		var prefix [5]byte
		dep := h.streamDep
		if h.exclusive {
			dep |= 0x80000000
		}
		http2utils.Uint32ToBytes(prefix[0:4], dep)
		prefix[4] = h.weight
		body = append(body, prefix[:]...)
	}

	body = append(body, h.rawHeaders...)

	if h.hasPadding {
		fh.flags = fh.flags.Add(FlagPadded)
		fh.payload = http2utils.AddPadding(body)
		return
	}

	fh.payload = body
}
