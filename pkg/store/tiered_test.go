package store

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"tpccstore/pkg/model"
	"tpccstore/pkg/schema"
)

// testStoreSchema has one Int slot (the key source) and one Enum slot. The
// rows the tests insert use values from the fitting sample, so in-memory
// cells take the Huffman-coded path.
func testStoreSchema() *schema.Schema {
	return &schema.Schema{
		Tag: "teststore",
		Slots: []schema.Slot{
			{Name: "id", Type: schema.Int, Tolerance: 0},
			{Name: "code", Type: schema.Enum, Cap: 50},
		},
	}
}

// fixedCodec is a minimal NativeCodec: 8 bytes for the int slot, 8 for the
// enum slot, fixed width, no truncation — just enough to exercise the
// disk-tier path in TieredStore without pulling in the real per-relation
// codecs under pkg/schema.
type fixedCodec struct{ sch *schema.Schema }

func (c fixedCodec) NativeSize() int { return 16 }

func (c fixedCodec) Encode(row *schema.AttrVector) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(row.GetInt(0)))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(row.GetEnum(1)))
	return buf
}

func (c fixedCodec) Decode(buf []byte, row *schema.AttrVector) {
	row.SetInt(0, int64(binary.LittleEndian.Uint64(buf[0:8])))
	row.SetEnum(1, int64(binary.LittleEndian.Uint64(buf[8:16])))
}

func keyOfTestRow(row *schema.AttrVector) Key { return Key(row.GetInt(0)) }

func newTestStore(t *testing.T, budget int64) *TieredStore {
	t.Helper()
	sch := testStoreSchema()
	rows := make([]*schema.AttrVector, 64)
	for i := range rows {
		r := schema.New(sch)
		r.SetInt(0, int64(i))
		r.SetEnum(1, int64(i%10))
		rows[i] = r
	}
	m := model.Fit(sch, rows)
	acct := NewAccountant(budget)
	path := filepath.Join(t.TempDir(), "teststore.page")
	return New("teststore", sch, m, fixedCodec{sch}, keyOfTestRow, acct, path)
}

func newTestRow(sch *schema.Schema, id, code int64) *schema.AttrVector {
	r := schema.New(sch)
	r.SetInt(0, id)
	r.SetEnum(1, code)
	return r
}

func TestInsertFindRoundTripInMemory(t *testing.T) {
	s := newTestStore(t, -1) // unbounded budget: everything stays resident
	sch := testStoreSchema()
	row := newTestRow(sch, 7, 3)

	if _, err := s.Insert(Key(7), row, 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.InMemCount() != 1 || s.OnDiskCount() != 0 {
		t.Fatalf("expected one in-memory tuple, got mem=%d disk=%d", s.InMemCount(), s.OnDiskCount())
	}

	got, err := s.Find(Key(7), 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.GetInt(0) != 7 || got.GetEnum(1) != 3 {
		t.Fatalf("Find returned wrong row: id=%d code=%d", got.GetInt(0), got.GetEnum(1))
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	s := newTestStore(t, -1)
	sch := testStoreSchema()
	if _, err := s.Insert(Key(1), newTestRow(sch, 1, 0), 0); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if _, err := s.Insert(Key(1), newTestRow(sch, 1, 1), 0); err == nil {
		t.Fatalf("expected ErrDuplicateKey on re-insert")
	}
}

func TestFindMissingKeyReturnsNil(t *testing.T) {
	s := newTestStore(t, -1)
	got, err := s.Find(Key(999), 0)
	if err != nil {
		t.Fatalf("Find on missing key returned an error: %v", err)
	}
	if got != nil {
		t.Fatalf("Find on missing key = %v, want nil", got)
	}
}

func TestZeroBudgetSpillsEveryInsertToDisk(t *testing.T) {
	s := newTestStore(t, 0)
	sch := testStoreSchema()
	if _, err := s.Insert(Key(1), newTestRow(sch, 1, 2), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.InMemCount() != 0 || s.OnDiskCount() != 1 {
		t.Fatalf("budget=0 should spill every insert: mem=%d disk=%d", s.InMemCount(), s.OnDiskCount())
	}

	got, err := s.Find(Key(1), 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.GetInt(0) != 1 || got.GetEnum(1) != 2 {
		t.Fatalf("disk-tier round trip failed: id=%d code=%d", got.GetInt(0), got.GetEnum(1))
	}
	defer s.Close()
}

func TestUnboundedBudgetNeverSpills(t *testing.T) {
	s := newTestStore(t, -1)
	sch := testStoreSchema()
	for i := int64(0); i < 50; i++ {
		if _, err := s.Insert(Key(i), newTestRow(sch, i, i%10), 0); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if s.OnDiskCount() != 0 {
		t.Fatalf("unbounded budget should never spill, on_disk_count=%d", s.OnDiskCount())
	}
}

func TestUpdateSingleSlotInMemory(t *testing.T) {
	s := newTestStore(t, -1)
	sch := testStoreSchema()
	if _, err := s.Insert(Key(5), newTestRow(sch, 5, 1), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := s.Update(Key(5), 1, 2, func(row *schema.AttrVector) {
		row.SetEnum(1, 9)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Find(Key(5), 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.GetEnum(1) != 9 {
		t.Fatalf("Update did not persist: code=%d, want 9", got.GetEnum(1))
	}
	if got.GetInt(0) != 5 {
		t.Fatalf("single-slot Update disturbed the untouched id slot: got %d", got.GetInt(0))
	}
}

func TestUpdateOnDiskCell(t *testing.T) {
	s := newTestStore(t, 0) // force disk tier
	sch := testStoreSchema()
	if _, err := s.Insert(Key(3), newTestRow(sch, 3, 4), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	defer s.Close()

	err := s.Update(Key(3), 1, 2, func(row *schema.AttrVector) {
		row.SetEnum(1, 8)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Find(Key(3), 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.GetEnum(1) != 8 {
		t.Fatalf("disk-tier Update did not persist: code=%d, want 8", got.GetEnum(1))
	}
}

func TestUpdateMissingKeyFails(t *testing.T) {
	s := newTestStore(t, -1)
	err := s.Update(Key(123), 0, 1, func(row *schema.AttrVector) {})
	if err == nil {
		t.Fatalf("expected ErrKeyNotFound updating a missing key")
	}
}

func TestEraseRemovesFromIndexAndAccounting(t *testing.T) {
	s := newTestStore(t, -1)
	sch := testStoreSchema()
	if _, err := s.Insert(Key(2), newTestRow(sch, 2, 1), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	before := s.InMemCount()
	if err := s.Erase(Key(2)); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if s.InMemCount() != before-1 {
		t.Fatalf("Erase did not decrement InMemCount: before=%d after=%d", before, s.InMemCount())
	}
	got, err := s.Find(Key(2), 0)
	if err != nil {
		t.Fatalf("Find after Erase: %v", err)
	}
	if got != nil {
		t.Fatalf("Find after Erase should return nil")
	}
}

func TestEraseFreesDiskFrameForReuse(t *testing.T) {
	s := newTestStore(t, 0)
	sch := testStoreSchema()
	defer s.Close()

	if _, err := s.Insert(Key(1), newTestRow(sch, 1, 1), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Erase(Key(1)); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := s.Insert(Key(2), newTestRow(sch, 2, 2), 0); err != nil {
		t.Fatalf("Insert after Erase: %v", err)
	}
	if s.OnDiskCount() != 1 {
		t.Fatalf("on_disk_count after erase+reinsert = %d, want 1", s.OnDiskCount())
	}
	if s.disk.FrameCount() != 1 {
		t.Fatalf("reinsert after erase should reuse the freed frame, FrameCount() = %d", s.disk.FrameCount())
	}
}

func TestScanVisitsKeysInAscendingOrder(t *testing.T) {
	s := newTestStore(t, -1)
	sch := testStoreSchema()
	for _, id := range []int64{5, 1, 3} {
		if _, err := s.Insert(Key(id), newTestRow(sch, id, 0), 0); err != nil {
			t.Fatalf("Insert(%d): %v", id, err)
		}
	}
	var seen []Key
	s.Scan(Key(0), Key(10), func(key Key) bool {
		seen = append(seen, key)
		return true
	})
	want := []Key{1, 3, 5}
	if len(seen) != len(want) {
		t.Fatalf("Scan visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Scan order = %v, want %v", seen, want)
		}
	}
}
