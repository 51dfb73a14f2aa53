package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// Data is the DATA frame (https://httpwg.org/specs/rfc7540.html#DATA):
// the body bytes of a request or response, flowing on an open stream and
// subject to flow control.
type Data struct {
	endStream  bool
	hasPadding bool
	b          []byte
}

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.hasPadding = false
	d.b = d.b[:0]
}

// EndStream reports whether this is the final DATA frame of the message.
func (d *Data) EndStream() bool { return d.endStream }

// SetEndStream sets the END_STREAM flag for the next Serialize call.
func (d *Data) SetEndStream(value bool) { d.endStream = value }

// Data returns the frame's payload bytes, padding already stripped.
func (d *Data) Data() []byte { return d.b }

// SetData replaces the frame's payload bytes.
func (d *Data) SetData(b []byte) {
	d.b = append(d.b[:0], b...)
}

// SetPadding requests that Serialize pad the frame's wire form. Padding
// is a wire-only courtesy; Data() never exposes padding bytes.
func (d *Data) SetPadding(value bool) { d.hasPadding = value }

func (d *Data) Deserialize(fh *FrameHeader) error {
	d.endStream = fh.Flags().Has(FlagEndStream)
	payload := fh.payload

	if fh.Flags().Has(FlagPadded) {
		cut, err := http2utils.CutPadding(payload, len(payload))
		if err != nil {
			// Illegal padding is a wire decode error (spec §7 category 1),
			// not a single stream's problem: the frame's length field is
			// internally inconsistent, so the connection's byte framing
			// itself can no longer be trusted.
			return NewConnError(FrameSizeError, "DATA: "+err.Error())
		}
		payload = cut
	}

	d.b = append(d.b[:0], payload...)
	return nil
}

func (d *Data) Serialize(fh *FrameHeader) {
	if d.endStream {
		fh.flags = fh.flags.Add(FlagEndStream)
	}

	if d.hasPadding {
		fh.flags = fh.flags.Add(FlagPadded)
		fh.payload = http2utils.AddPadding(append(fh.payload[:0], d.b...))
		return
	}

	fh.payload = append(fh.payload[:0], d.b...)
}
