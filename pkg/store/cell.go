// Package store is the tiered tuple store from spec.md §4.4/§4.5: the
// compressed cell, the primary index, the footprint accountant, and their
// composition into insert/find/update/scan/size.
package store

// Key is the 64-bit derived key used by every compressible relation's
// primary index. pkg/keys lays the Stock, Customer and OrderLine keys out
// across the full uint64 and carries them as unsigned 64-bit values
// end-to-end, so they cannot go negative.
type Key uint64

// Cell is the tagged union from spec.md §4.4: exactly one of InMemory or
// OnDisk is populated. Tier is decided once, at insert time, and never
// changes (spec.md §4.5).
type Cell struct {
	onDisk bool
	bytes  []byte // InMemory: compressed segments; unused when onDisk
	frame  int64  // OnDisk: frame index into the relation's PageFile
}

func newInMemoryCell(bytes []byte) *Cell {
	return &Cell{onDisk: false, bytes: bytes}
}

func newOnDiskCell(frame int64) *Cell {
	return &Cell{onDisk: true, frame: frame}
}

func (c *Cell) IsOnDisk() bool { return c.onDisk }

func (c *Cell) Bytes() []byte { return c.bytes }

func (c *Cell) Frame() int64 { return c.frame }
