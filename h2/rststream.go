package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// RstStream is the RST_STREAM frame
// (https://httpwg.org/specs/rfc7540.html#RST_STREAM): immediately
// terminates a stream with an error code.
type RstStream struct {
	code ErrorCode
}

func (r *RstStream) Type() FrameType { return FrameResetStream }

func (r *RstStream) Reset() { r.code = NoError }

func (r *RstStream) Code() ErrorCode    { return r.code }
func (r *RstStream) SetCode(c ErrorCode) { r.code = c }

func (r *RstStream) Deserialize(fh *FrameHeader) error {
	if len(fh.payload) != 4 {
		return NewConnError(FrameSizeError, "RST_STREAM: payload must be 4 bytes")
	}
	r.code = ErrorCode(http2utils.BytesToUint32(fh.payload))
	return nil
}

func (r *RstStream) Serialize(fh *FrameHeader) {
	fh.payload = http2utils.AppendUint32Bytes(fh.payload[:0], uint32(r.code))
}
