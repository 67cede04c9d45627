package schema

import (
	"encoding/binary"
	"math"
)

// NativeCodec converts a full attribute vector to/from its fixed native
// byte layout, used only for disk-tier tuples (spec.md §4.4: disk-tier
// rows are stored uncompressed and are "not field-truncatable"). It
// satisfies pkg/store's NativeCodec interface structurally, without
// pkg/schema importing pkg/store.
type NativeCodec struct {
	schema *Schema
	widths []int
	size   int
}

// NewNativeCodec builds the native row layout for sch: 8 bytes per
// Int/Real/Enum slot, 2+MaxLen bytes per Str slot.
func NewNativeCodec(sch *Schema) *NativeCodec {
	c := &NativeCodec{schema: sch, widths: make([]int, sch.Arity())}
	for i, slot := range sch.Slots {
		w := 8
		if slot.Type == Str {
			w = 2 + slot.MaxLen
		}
		c.widths[i] = w
		c.size += w
	}
	return c
}

func (c *NativeCodec) NativeSize() int { return c.size }

func (c *NativeCodec) Encode(row *AttrVector) []byte {
	buf := make([]byte, c.size)
	off := 0
	for i, slot := range c.schema.Slots {
		w := c.widths[i]
		switch slot.Type {
		case Str:
			s := row.GetStr(i)
			if len(s) > slot.MaxLen {
				s = s[:slot.MaxLen]
			}
			binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(s)))
			copy(buf[off+2:off+w], s)
		case Real:
			binary.BigEndian.PutUint64(buf[off:off+w], math.Float64bits(row.GetReal(i)))
		case Enum:
			binary.BigEndian.PutUint64(buf[off:off+w], uint64(row.GetEnum(i)))
		default: // Int
			binary.BigEndian.PutUint64(buf[off:off+w], uint64(row.GetInt(i)))
		}
		off += w
	}
	return buf
}

func (c *NativeCodec) Decode(buf []byte, row *AttrVector) {
	off := 0
	for i, slot := range c.schema.Slots {
		w := c.widths[i]
		switch slot.Type {
		case Str:
			n := binary.BigEndian.Uint16(buf[off : off+2])
			row.SetStr(i, string(buf[off+2:off+2+int(n)]))
		case Real:
			row.SetReal(i, math.Float64frombits(binary.BigEndian.Uint64(buf[off:off+w])))
		case Enum:
			row.SetEnum(i, int64(binary.BigEndian.Uint64(buf[off:off+w])))
		default:
			row.SetInt(i, int64(binary.BigEndian.Uint64(buf[off:off+w])))
		}
		off += w
	}
}
