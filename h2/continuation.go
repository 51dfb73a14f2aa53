package http2

// Continuation is the CONTINUATION frame
// (https://httpwg.org/specs/rfc7540.html#CONTINUATION): carries the
// remainder of a header block started by a HEADERS or PUSH_PROMISE frame
// whose END_HEADERS flag was not set.
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) EndHeaders() bool     { return c.endHeaders }
func (c *Continuation) SetEndHeaders(v bool) { c.endHeaders = v }
func (c *Continuation) HeaderBlockFragment() []byte { return c.rawHeaders }
func (c *Continuation) SetHeaderBlockFragment(b []byte) {
	c.rawHeaders = append(c.rawHeaders[:0], b...)
}

func (c *Continuation) Deserialize(fh *FrameHeader) error {
	c.endHeaders = fh.Flags().Has(FlagEndHeaders)
	c.rawHeaders = append(c.rawHeaders[:0], fh.payload...)
	return nil
}

func (c *Continuation) Serialize(fh *FrameHeader) {
	if c.endHeaders {
		fh.flags = fh.flags.Add(FlagEndHeaders)
	}
	fh.payload = append(fh.payload[:0], c.rawHeaders...)
}
