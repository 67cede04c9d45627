package schema

// value is the typed union stored in one slot. Exactly one field is
// meaningful, selected by the owning Schema's declared Type — mismatched
// reads panic rather than silently returning a zero value (spec.md §9).
type value struct {
	i int64
	r float64
	s string
}

// AttrVector is a typed row value: one value per schema slot, all-default
// until a caller fills it in by index.
type AttrVector struct {
	schema *Schema
	vals   []value
}

// New returns an all-slots-default attribute vector for schema.
func New(schema *Schema) *AttrVector {
	return &AttrVector{schema: schema, vals: make([]value, schema.Arity())}
}

func (v *AttrVector) Schema() *Schema { return v.schema }

func (v *AttrVector) GetInt(i int) int64 {
	v.schema.checkIndex(i, Int)
	return v.vals[i].i
}

func (v *AttrVector) GetEnum(i int) int64 {
	v.schema.checkIndex(i, Enum)
	return v.vals[i].i
}

func (v *AttrVector) GetReal(i int) float64 {
	v.schema.checkIndex(i, Real)
	return v.vals[i].r
}

func (v *AttrVector) GetStr(i int) string {
	v.schema.checkIndex(i, Str)
	return v.vals[i].s
}

// SetInt, SetEnum, SetReal, SetStr fill slot i; each panics with
// ErrSchemaViolation if i does not name a slot of the matching type.
func (v *AttrVector) SetInt(i int, x int64) {
	v.schema.checkIndex(i, Int)
	v.vals[i].i = x
}

func (v *AttrVector) SetEnum(i int, x int64) {
	v.schema.checkIndex(i, Enum)
	v.vals[i].i = x
}

func (v *AttrVector) SetReal(i int, x float64) {
	v.schema.checkIndex(i, Real)
	v.vals[i].r = x
}

func (v *AttrVector) SetStr(i int, x string) {
	v.schema.checkIndex(i, Str)
	v.vals[i].s = x
}

// Clone returns a deep copy sharing the same schema.
func (v *AttrVector) Clone() *AttrVector {
	cp := &AttrVector{schema: v.schema, vals: make([]value, len(v.vals))}
	copy(cp.vals, v.vals)
	return cp
}

// CopyFrom overwrites slots [0,k) of v with the corresponding slots of src,
// leaving slots [k, arity) of v untouched.
func (v *AttrVector) CopyFrom(src *AttrVector, k int) {
	copy(v.vals[:k], src.vals[:k])
}
