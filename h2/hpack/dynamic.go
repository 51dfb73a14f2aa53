package hpack

// dynamicTable implements RFC 7541 §2.3.2's dynamic table: a FIFO of
// header fields bounded by a byte-size limit, with entries evicted
// oldest-first whenever a new entry would exceed that limit.
type dynamicTable struct {
	// entries is newest-first, matching the wire indexing order:
	// dynamic index 1 (after the static table) is entries[0].
	entries []HeaderField
	size    int
	maxSize int
}

func (d *dynamicTable) len() int { return len(d.entries) }

// at returns the header field at dynamic index i (1-based, 1 == most
// recently inserted).
func (d *dynamicTable) at(i int) (HeaderField, bool) {
	if i < 1 || i > len(d.entries) {
		return HeaderField{}, false
	}
	return d.entries[i-1], true
}

// add inserts hf at the front of the table, evicting the oldest entries
// until the size invariant holds. An entry larger than the whole table
// empties the table instead of being inserted, per §4.4.
func (d *dynamicTable) add(hf HeaderField) {
	entrySize := hf.Size()

	for d.size+entrySize > d.maxSize && len(d.entries) > 0 {
		last := d.entries[len(d.entries)-1]
		d.size -= last.Size()
		d.entries = d.entries[:len(d.entries)-1]
	}

	if entrySize > d.maxSize {
		return
	}

	d.entries = append([]HeaderField{hf}, d.entries...)
	d.size += entrySize
}

// setMaxSize applies a new size bound, evicting entries as needed. This
// is how SETTINGS_HEADER_TABLE_SIZE and an encoder's dynamic table size
// update both take effect.
func (d *dynamicTable) setMaxSize(n int) {
	d.maxSize = n
	for d.size > d.maxSize && len(d.entries) > 0 {
		last := d.entries[len(d.entries)-1]
		d.size -= last.Size()
		d.entries = d.entries[:len(d.entries)-1]
	}
}
