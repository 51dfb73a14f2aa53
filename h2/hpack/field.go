// Package hpack implements RFC 7541 HPACK header compression: the static
// and dynamic tables, integer and string primitives, and the full
// canonical Huffman code used by HTTP/2's header block encoding.
package hpack

import "sync"

// HeaderField is one name/value header pair, optionally marked sensitive
// (never inserted into the dynamic table, always literal-encoded, mirrors
// RFC 7541 §7.1's "never indexed" representation).
type HeaderField struct {
	Key       string
	Value     string
	Sensitive bool
}

// Size is the field's contribution to a table's size accounting, per
// RFC 7541 §4.1: the name and value lengths plus 32 bytes of overhead.
func (hf *HeaderField) Size() int {
	return len(hf.Key) + len(hf.Value) + 32
}

// IsPseudo reports whether the field's name is an HTTP/2 pseudo-header
// (":method", ":path", ":scheme", ":authority", ":status").
func (hf *HeaderField) IsPseudo() bool {
	return len(hf.Key) > 0 && hf.Key[0] == ':'
}

var headerFieldPool = sync.Pool{
	New: func() interface{} { return &HeaderField{} },
}

// AcquireHeaderField returns a pooled, zeroed HeaderField.
func AcquireHeaderField() *HeaderField {
	return headerFieldPool.Get().(*HeaderField)
}

// ReleaseHeaderField resets hf and returns it to the pool.
func ReleaseHeaderField(hf *HeaderField) {
	hf.Key = ""
	hf.Value = ""
	hf.Sensitive = false
	headerFieldPool.Put(hf)
}
