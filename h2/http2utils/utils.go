// Package http2utils holds small byte-level helpers shared by the frame
// codec and HPACK codec: big-endian integer packing, padding, and the
// unsafe string/byte conversions fasthttp-style code relies on to avoid
// allocations on the hot path.
package http2utils

import (
	"crypto/rand"
	"unsafe"

	"github.com/valyala/fastrand"
)

// Uint24ToBytes packs the low 24 bits of n into b (big-endian).
func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2] // bound check hint
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

// BytesToUint24 reads a big-endian 24-bit integer from b.
func BytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// Uint32ToBytes packs n into b (big-endian, 4 bytes).
func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// AppendUint32Bytes appends the big-endian encoding of n to dst.
func AppendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// BytesToUint32 reads a big-endian 32-bit integer from b. The reserved
// high bit (used by stream ids) is NOT cleared here; callers that need
// a u31 must mask it themselves.
func BytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ClearReservedBit masks off the single reserved high bit HTTP/2 uses in
// stream identifiers and window increments, producing a u31.
func ClearReservedBit(n uint32) uint32 {
	return n & (1<<31 - 1)
}

// EqualsFold does a byte-wise ASCII case-insensitive comparison without
// allocating, the way header-name matching needs to on the hot path.
func EqualsFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// Resize grows b (reusing spare capacity) so that len(b) == neededLen.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]
	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b[:neededLen]
}

// CutPadding strips a PADDED-flag frame's leading pad-length byte and
// trailing padding bytes from payload, given the frame's declared length.
// Returns an error instead of panicking when the padding doesn't fit,
// since a malicious peer can set pad_length >= payload length.
func CutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrPaddingOutOfRange
	}

	pad := int(payload[0])
	if 1+pad > length {
		return nil, ErrPaddingOutOfRange
	}

	return payload[1 : length-pad], nil
}

// AddPadding prepends a random pad-length byte and appends that many
// random padding bytes to b, mirroring the teacher's padding helper.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9
	nn := len(b)

	b = Resize(b, nn+n)
	b = append(b[:1], b...)
	b[0] = uint8(n)

	_, _ = rand.Read(b[nn+1 : nn+n])

	return b
}

// FastBytesToString returns a string aliasing b's storage without
// copying. Callers MUST NOT mutate b afterwards.
func FastBytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// FastStringToBytes returns a []byte aliasing s's storage without
// copying. Callers MUST NOT mutate the returned slice.
func FastStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
