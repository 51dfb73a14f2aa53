package http2

import (
	"bufio"
	"bytes"
	"io"
)

// ClientPreface is the 24-octet connection preface every HTTP/2 client
// must send before any frame (https://httpwg.org/specs/rfc7540.html#Preface).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// ReadPreface consumes and validates the client connection preface from
// br. It must be called exactly once, before the first call to
// FrameHeader.ReadFrom.
func ReadPreface(br *bufio.Reader) error {
	buf := make([]byte, len(ClientPreface))
	if _, err := io.ReadFull(br, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, []byte(ClientPreface)) {
		return NewConnError(ProtocolError, "invalid connection preface")
	}
	return nil
}
