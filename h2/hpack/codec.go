package hpack

import (
	"errors"
	"sync"

	"github.com/bimmerbailey/ladybug/h2/http2utils"
)

// ErrIndexOutOfRange is returned when an indexed or indexed-name
// representation references a table slot that doesn't exist.
var ErrIndexOutOfRange = errors.New("hpack: index out of range")

// ErrIntegerOverflow guards against a peer using the continuation-byte
// integer encoding to smuggle an unbounded value.
var ErrIntegerOverflow = errors.New("hpack: integer too large")

// ErrUnexpectedEOF is returned when a header block ends mid-representation.
var ErrUnexpectedEOF = errors.New("hpack: unexpected end of header block")

const maxIntBytes = 6 // bounds the continuation loop; 6*7 bits covers any realistic value

// appendInt encodes value using the N-bit prefix integer representation
// of RFC 7541 §5.1. prefixBits is N (1..8); prefixFlags carries the
// representation's own high-order bits, which are OR-ed into the prefix
// byte appended to dst.
func appendInt(dst []byte, prefixBits int, prefixFlags byte, value uint64) []byte {
	max := uint64(1<<uint(prefixBits) - 1)
	if value < max {
		return append(dst, prefixFlags|byte(value))
	}

	dst = append(dst, prefixFlags|byte(max))
	value -= max
	for value >= 128 {
		dst = append(dst, byte(value%128)+128)
		value /= 128
	}
	return append(dst, byte(value))
}

// readInt decodes an N-bit prefix integer from b, where b[0]'s low
// prefixBits bits (and any continuation bytes) hold the value. Returns
// the decoded value and the number of bytes consumed.
func readInt(b []byte, prefixBits int) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrUnexpectedEOF
	}

	max := uint64(1<<uint(prefixBits) - 1)
	value := uint64(b[0]) & max

	if value < max {
		return value, 1, nil
	}

	m := uint64(0)
	for i := 1; ; i++ {
		if i > maxIntBytes {
			return 0, 0, ErrIntegerOverflow
		}
		if i >= len(b) {
			return 0, 0, ErrUnexpectedEOF
		}

		c := b[i]
		value += uint64(c&0x7f) << m
		m += 7

		if c&0x80 == 0 {
			return value, i + 1, nil
		}
	}
}

// appendString encodes s as an HPACK string literal (RFC 7541 §5.2),
// using Huffman coding unless disableHuffman is set or Huffman would not
// shrink the string.
func appendString(dst []byte, s string, disableHuffman bool) []byte {
	if !disableHuffman {
		if hlen := EncodedLen(s); hlen < len(s) {
			dst = appendInt(dst, 7, 0x80, uint64(hlen))
			return AppendHuffman(dst, s)
		}
	}
	dst = appendInt(dst, 7, 0x00, uint64(len(s)))
	return append(dst, s...)
}

// readString decodes an HPACK string literal from b, returning the
// string and the number of bytes consumed.
func readString(b []byte) (string, int, error) {
	if len(b) == 0 {
		return "", 0, ErrUnexpectedEOF
	}

	huff := b[0]&0x80 != 0
	length, n, err := readInt(b, 7)
	if err != nil {
		return "", 0, err
	}

	total := n + int(length)
	if total > len(b) {
		return "", 0, ErrUnexpectedEOF
	}

	raw := b[n:total]
	if !huff {
		// raw is a sub-slice of the caller's own header-block buffer
		// (conn.go assembles it fresh per header block, never pooled),
		// so aliasing it avoids a copy on every decoded literal the way
		// the teacher's b2s does for its own request/response headers.
		return http2utils.FastBytesToString(raw), total, nil
	}

	dec, err := DecodeHuffman(make([]byte, 0, len(raw)*2), raw)
	if err != nil {
		return "", 0, err
	}
	return http2utils.FastBytesToString(dec), total, nil
}

// HPack is a one-directional HPACK codec: it owns a dynamic table and
// exposes both the encoder surface (Add + Write) and the decoder surface
// (Read + Fields) a connection needs for one direction of traffic.
// Request decoding and response encoding use separate HPack instances,
// since HPACK's dynamic table is per-direction, not shared.
type HPack struct {
	dynamic dynamicTable

	// toAdd holds fields queued by Add, flushed by the next Write.
	toAdd []HeaderField

	// fields holds the most recently decoded field list from Read, in
	// wire order.
	fields []*HeaderField

	// DisableCompression turns off Huffman coding of string literals.
	// Indexing is unaffected.
	DisableCompression bool

	// tableSize is the bound most recently installed by SetMaxTableSize.
	// sizeUpdatePending is set whenever that bound shrinks the table, and
	// cleared once Write has emitted the corresponding dynamic table size
	// update instruction, so the remote decoder's mirrored table never
	// diverges from the encoder's.
	tableSize         int
	sizeUpdatePending bool
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		hp := &HPack{tableSize: DefaultDynamicTableSize}
		hp.dynamic.maxSize = DefaultDynamicTableSize
		return hp
	},
}

// DefaultDynamicTableSize is HPACK's default dynamic table size bound
// before any SETTINGS_HEADER_TABLE_SIZE or dynamic-size-update applies.
const DefaultDynamicTableSize = 4096

// AcquireHPack returns a pooled HPack ready for use.
func AcquireHPack() *HPack {
	return hpackPool.Get().(*HPack)
}

// ReleaseHPack resets hp and returns it to the pool.
func ReleaseHPack(hp *HPack) {
	hp.releaseFields()
	hp.toAdd = hp.toAdd[:0]
	hp.dynamic.entries = hp.dynamic.entries[:0]
	hp.dynamic.size = 0
	hp.dynamic.maxSize = DefaultDynamicTableSize
	hp.tableSize = DefaultDynamicTableSize
	hp.sizeUpdatePending = false
	hp.DisableCompression = false
	hpackPool.Put(hp)
}

// SetMaxTableSize bounds the size of hp's dynamic table, evicting
// entries if necessary. On an encoder this also schedules a dynamic
// table size update to be written with the next Write call, per RFC
// 7541 §6.3: a decoder's mirrored table only ever shrinks in response
// to that signal, so the encoder must emit it whenever the bound it
// applies locally goes down.
func (hp *HPack) SetMaxTableSize(n int) {
	if n < hp.tableSize {
		hp.sizeUpdatePending = true
	}
	hp.tableSize = n
	hp.dynamic.setMaxSize(n)
}

// Add queues a header field to be written by the next call to Write.
func (hp *HPack) Add(key, value string) {
	hp.toAdd = append(hp.toAdd, HeaderField{Key: key, Value: value})
}

// AddSensitive queues a never-indexed header field (RFC 7541 §7.1), for
// values like Authorization that must never be cached in the clear.
func (hp *HPack) AddSensitive(key, value string) {
	hp.toAdd = append(hp.toAdd, HeaderField{Key: key, Value: value, Sensitive: true})
}

func (hp *HPack) releaseFields() {
	for _, f := range hp.fields {
		ReleaseHeaderField(f)
	}
	hp.fields = hp.fields[:0]
}

// Fields returns the field list produced by the most recent Read call.
func (hp *HPack) Fields() []*HeaderField { return hp.fields }

// Write encodes every field queued by Add into dst, choosing the
// narrowest RFC 7541 representation available (fully indexed, indexed
// name with literal value, or full literal) and inserting non-sensitive
// fields into the dynamic table so future calls can reference them. If
// SetMaxTableSize has shrunk the table since the last Write, a dynamic
// table size update (§6.3) is emitted first so the remote decoder's
// table never outgrows what this encoder is still willing to reference.
func (hp *HPack) Write(dst []byte) ([]byte, error) {
	if hp.sizeUpdatePending {
		dst = appendInt(dst, 5, 0x20, uint64(hp.tableSize))
		hp.sizeUpdatePending = false
	}
	for _, hf := range hp.toAdd {
		dst = hp.writeField(dst, hf)
	}
	hp.toAdd = hp.toAdd[:0]
	return dst, nil
}

func (hp *HPack) writeField(dst []byte, hf HeaderField) []byte {
	if hf.Sensitive {
		dst = appendInt(dst, 4, 0x10, 0)
		dst = appendString(dst, hf.Key, hp.DisableCompression)
		return appendString(dst, hf.Value, hp.DisableCompression)
	}

	if idx, ok := staticFullIndex[hf.Key+"\x00"+hf.Value]; ok {
		return appendInt(dst, 7, 0x80, uint64(idx))
	}
	if idx, ok := hp.dynamic.fullIndex(hf.Key, hf.Value); ok {
		return appendInt(dst, 7, 0x80, uint64(idx))
	}

	var nameIdx int
	var haveName bool
	if idx, ok := staticNameIndex[hf.Key]; ok {
		nameIdx, haveName = idx, true
	} else if idx, ok := hp.dynamic.nameIndex(hf.Key); ok {
		nameIdx, haveName = idx, true
	}

	if haveName {
		dst = appendInt(dst, 6, 0x40, uint64(nameIdx))
	} else {
		dst = appendInt(dst, 6, 0x40, 0)
		dst = appendString(dst, hf.Key, hp.DisableCompression)
	}
	dst = appendString(dst, hf.Value, hp.DisableCompression)

	hp.dynamic.add(hf)
	return dst
}

// Read decodes one complete header block from b, populating hp.Fields()
// with the result (releasing any fields from a previous Read first).
// It returns the unconsumed remainder of b, which should always be
// empty for a well-formed, complete header block.
func (hp *HPack) Read(b []byte) ([]byte, error) {
	hp.releaseFields()

	for len(b) > 0 {
		switch {
		case b[0]&0x80 != 0: // indexed header field, §6.1
			idx, n, err := readInt(b, 7)
			if err != nil {
				return nil, err
			}
			hf, err := hp.lookup(int(idx))
			if err != nil {
				return nil, err
			}
			hp.emit(hf.Key, hf.Value, false)
			b = b[n:]

		case b[0]&0x40 != 0: // literal with incremental indexing, §6.2.1
			nb, rest, err := hp.readLiteral(b, 6)
			if err != nil {
				return nil, err
			}
			hp.dynamic.add(nb)
			hp.emit(nb.Key, nb.Value, false)
			b = rest

		case b[0]&0x20 != 0: // dynamic table size update, §6.3
			n, consumed, err := readInt(b, 5)
			if err != nil {
				return nil, err
			}
			hp.dynamic.setMaxSize(int(n))
			b = b[consumed:]

		case b[0]&0x10 != 0: // literal never indexed, §6.2.3
			nb, rest, err := hp.readLiteral(b, 4)
			if err != nil {
				return nil, err
			}
			hp.emit(nb.Key, nb.Value, true)
			b = rest

		default: // literal without indexing, §6.2.2
			nb, rest, err := hp.readLiteral(b, 4)
			if err != nil {
				return nil, err
			}
			hp.emit(nb.Key, nb.Value, false)
			b = rest
		}
	}

	return b, nil
}

func (hp *HPack) emit(key, value string, sensitive bool) {
	hf := AcquireHeaderField()
	hf.Key = key
	hf.Value = value
	hf.Sensitive = sensitive
	hp.fields = append(hp.fields, hf)
}

// readLiteral decodes a literal representation (with an N-bit prefix
// index field) starting at b, returning the decoded field and the
// unconsumed remainder.
func (hp *HPack) readLiteral(b []byte, prefixBits int) (HeaderField, []byte, error) {
	idx, n, err := readInt(b, prefixBits)
	if err != nil {
		return HeaderField{}, nil, err
	}
	b = b[n:]

	var key string
	if idx == 0 {
		key, n, err = readString(b)
		if err != nil {
			return HeaderField{}, nil, err
		}
		b = b[n:]
	} else {
		hf, err := hp.lookup(int(idx))
		if err != nil {
			return HeaderField{}, nil, err
		}
		key = hf.Key
	}

	value, n, err := readString(b)
	if err != nil {
		return HeaderField{}, nil, err
	}
	b = b[n:]

	return HeaderField{Key: key, Value: value}, b, nil
}

// lookup resolves a combined static+dynamic table index, per §2.3.3:
// indices 1..61 are static, 62.. are dynamic (62 == most recent).
func (hp *HPack) lookup(idx int) (HeaderField, error) {
	if idx >= 1 && idx <= staticTableLen {
		return staticTable[idx], nil
	}
	if hf, ok := hp.dynamic.at(idx - staticTableLen); ok {
		return hf, nil
	}
	return HeaderField{}, ErrIndexOutOfRange
}

// fullIndex and nameIndex let the encoder check the dynamic table the
// same way it checks the static table.
func (d *dynamicTable) fullIndex(key, value string) (int, bool) {
	for i, e := range d.entries {
		if e.Key == key && e.Value == value {
			return staticTableLen + i + 1, true
		}
	}
	return 0, false
}

func (d *dynamicTable) nameIndex(key string) (int, bool) {
	for i, e := range d.entries {
		if e.Key == key {
			return staticTableLen + i + 1, true
		}
	}
	return 0, false
}
