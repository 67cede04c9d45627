package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tpccstore/internal/terrors"
	"tpccstore/pkg/diskio"
	"tpccstore/pkg/model"
	"tpccstore/pkg/schema"
)

// KeyOf derives a cell's index key from its full decoded row; used to
// verify the invariant that decompressing a cell recovers a row whose
// derived key equals the index key (spec.md §8 invariant 1), i.e. the
// "checksum" spec.md §7 requires before raising ErrModelInconsistency.
type KeyOf func(row *schema.AttrVector) Key

// NativeCodec converts a full attribute vector to/from its fixed native
// byte layout, used only for disk-tier tuples (spec.md §4.4: "disk tuples
// are not field-truncatable").
type NativeCodec interface {
	Encode(row *schema.AttrVector) []byte
	Decode(buf []byte, row *schema.AttrVector)
	NativeSize() int
}

// TieredStore is the per-relation composition of index + model + disk +
// accountant into insert/find/update/scan/size (spec.md §4.4).
type TieredStore struct {
	relation string
	sch      *schema.Schema
	m        *model.Model
	idx      *Index
	disk     *diskio.PageFile // nil until the first spill (spec.md §4.4)
	diskPath string
	native   NativeCodec
	keyOf    KeyOf
	acct     *Accountant

	scratchRow  *schema.AttrVector
	inMemCount  int64
	onDiskCount int64
}

// New constructs a TieredStore. The disk tier is opened lazily on first
// spill, per spec.md §4.4 ("optional — may be absent if the budget is
// never exceeded").
func New(relation string, sch *schema.Schema, m *model.Model, native NativeCodec, keyOf KeyOf, acct *Accountant, diskPath string) *TieredStore {
	return &TieredStore{
		relation:   relation,
		sch:        sch,
		m:          m,
		idx:        NewIndex(),
		native:     native,
		keyOf:      keyOf,
		acct:       acct,
		diskPath:   diskPath,
		scratchRow: schema.New(sch),
	}
}

func (t *TieredStore) ensureDisk() (*diskio.PageFile, error) {
	if t.disk != nil {
		return t.disk, nil
	}
	pf, err := diskio.Open(t.diskPath, t.native.NativeSize())
	if err != nil {
		return nil, err
	}
	t.disk = pf
	return pf, nil
}

// Insert stores row under key, compressing slots [0,k) (k defaults to the
// schema's full arity for a committed insert; k < arity is the "build a
// compressed sub-tuple without committing" path from spec.md §4.4 step 5,
// which does not touch the index). Fails with ErrDuplicateKey if key is
// already present (only applies when committing, i.e. k == arity).
func (t *TieredStore) Insert(key Key, row *schema.AttrVector, k int) ([]byte, error) {
	if k == 0 {
		k = t.sch.Arity()
	}
	commit := k == t.sch.Arity()

	if commit && t.idx.Get(key) != nil {
		return nil, fmt.Errorf("%w: key %d in relation %s", terrors.ErrDuplicateKey, key, t.relation)
	}

	candidate := model.Compress(t.m, row, k)
	if t.acct.ToMemory(t.m.Footprint(), int64(len(candidate))) {
		if !commit {
			return candidate, nil
		}
		if err := t.idx.Insert(key, newInMemoryCell(candidate)); err != nil {
			return nil, err
		}
		t.inMemCount++
		t.acct.AddMem(t.relation, int64(len(candidate)))
		return candidate, nil
	}

	if !commit {
		return candidate, nil
	}

	pf, err := t.ensureDisk()
	if err != nil {
		return nil, err
	}
	native := t.native.Encode(row)
	frame, err := pf.Append(native)
	if err != nil {
		return nil, err
	}
	if err := t.idx.Insert(key, newOnDiskCell(frame)); err != nil {
		return nil, err
	}
	t.onDiskCount++
	t.acct.AddDisk(t.relation, int64(pf.FrameSize()))
	logrus.Infof("%s: key %d spilled to disk frame %d", t.relation, key, frame)
	return native, nil
}

// Find returns slots [0,k) of key's stored row in the store's reusable
// scratch buffer, or nil if key is absent. For OnDisk cells the full
// native row is read and decoded regardless of k (spec.md §4.4: "disk
// tuples are not field-truncatable"). The returned pointer is only valid
// until the next call to Find on this store.
func (t *TieredStore) Find(key Key, k int) (*schema.AttrVector, error) {
	if k == 0 {
		k = t.sch.Arity()
	}
	cell := t.idx.Get(key)
	if cell == nil {
		return nil, nil
	}

	if cell.IsOnDisk() {
		pf, err := t.ensureDisk()
		if err != nil {
			return nil, err
		}
		native, err := pf.ReadAt(cell.Frame(), t.native.NativeSize())
		if err != nil {
			return nil, err
		}
		t.native.Decode(native, t.scratchRow)
		t.verifyKey(key, t.sch.Arity())
		return t.scratchRow, nil
	}

	model.Decompress(t.m, cell.Bytes(), t.scratchRow, k)
	if k == t.sch.Arity() {
		t.verifyKey(key, k)
	}
	return t.scratchRow, nil
}

func (t *TieredStore) verifyKey(want Key, k int) {
	if k != t.sch.Arity() || t.keyOf == nil {
		return
	}
	if got := t.keyOf(t.scratchRow); got != want {
		panic(fmt.Errorf("%w: relation %s expected key %d, decoded row derives %d", terrors.ErrModelInconsistency, t.relation, want, got))
	}
}

// Update decodes key's full current row, calls mutate on it, and writes the
// result back. touchedFrom..touchedTo (inclusive lower bound, exclusive
// upper bound) names which slots mutate changed: if the stored cell is
// InMemory and exactly one slot changed, update_single is used; otherwise
// the whole row is re-encoded (or, for a disk-tier cell, always the whole
// native row), per spec.md §4.4. mutate must only touch slots in that
// range — every other slot must reach mutate already holding its correct,
// persisted value, which is why Update decodes the full row first rather
// than trusting a caller-supplied partial one.
func (t *TieredStore) Update(key Key, touchedFrom, touchedTo int, mutate func(row *schema.AttrVector)) error {
	cell := t.idx.Get(key)
	if cell == nil {
		return fmt.Errorf("%w: key %d in relation %s", terrors.ErrKeyNotFound, key, t.relation)
	}

	if cell.IsOnDisk() {
		pf, err := t.ensureDisk()
		if err != nil {
			return err
		}
		native, err := pf.ReadAt(cell.Frame(), t.native.NativeSize())
		if err != nil {
			return err
		}
		t.native.Decode(native, t.scratchRow)
		mutate(t.scratchRow)
		return pf.WriteAt(cell.Frame(), t.native.Encode(t.scratchRow))
	}

	model.Decompress(t.m, cell.Bytes(), t.scratchRow, t.sch.Arity())
	mutate(t.scratchRow)

	if touchedTo-touchedFrom == 1 {
		slotBytes := model.UpdateSingle(t.m, t.scratchRow, touchedFrom)
		off := t.m.Offset(touchedFrom)
		width := t.m.SlotWidth(touchedFrom)
		buf := cell.bytes
		if off+width > len(buf) {
			grown := make([]byte, off+width)
			copy(grown, buf)
			buf = grown
		}
		before := len(cell.bytes)
		copy(buf[off:off+width], slotBytes)
		cell.bytes = buf
		t.acct.AddMem(t.relation, int64(len(buf)-before))
		return nil
	}

	newBytes := model.Compress(t.m, t.scratchRow, t.sch.Arity())
	delta := int64(len(newBytes) - len(cell.bytes))
	cell.bytes = newBytes
	t.acct.AddMem(t.relation, delta)
	return nil
}

// Erase removes key's entry, freeing its disk frame for reuse if it was
// on the disk tier.
func (t *TieredStore) Erase(key Key) error {
	cell := t.idx.Erase(key)
	if cell == nil {
		return fmt.Errorf("%w: key %d in relation %s", terrors.ErrKeyNotFound, key, t.relation)
	}
	if cell.IsOnDisk() {
		if t.disk != nil {
			t.disk.Erase(cell.Frame())
		}
		t.onDiskCount--
		t.acct.totalsFor(t.relation).diskFrames--
	} else {
		t.inMemCount--
		t.acct.RemoveMem(t.relation, int64(len(cell.Bytes())))
	}
	return nil
}

// Scan visits every key in [lo, hi] in ascending order.
func (t *TieredStore) Scan(lo, hi Key, fn func(key Key) bool) {
	t.idx.Scan(lo, hi, func(key Key, _ *Cell) bool { return fn(key) })
}

// Size returns the number of resident tuples (in-memory + on-disk).
func (t *TieredStore) Size() int { return t.idx.Len() }

// InMemCount and OnDiskCount expose the per-tier counters spec.md §4.4/§8
// use to test the admission policy.
func (t *TieredStore) InMemCount() int64  { return t.inMemCount }
func (t *TieredStore) OnDiskCount() int64 { return t.onDiskCount }

// Close tears down the disk tier, if any (spec.md §9's RAII note).
func (t *TieredStore) Close() error {
	if t.disk == nil {
		return nil
	}
	return t.disk.TruncateAndClose()
}
