// Package relation holds the small, uncompressed TPC-C relations
// (spec.md §4.6): Warehouse, District, Item kept in plain B+-trees, Order
// with its customer-order secondary index, NewOrder as an ordered map, and
// History as an append-only log. None of these go through pkg/model or
// pkg/diskio — they are small enough to stay fully resident and
// uncompressed for the process lifetime.
package relation

import (
	"fmt"

	"github.com/google/btree"

	"tpccstore/internal/terrors"
	"tpccstore/pkg/schema"
)

const degree = 32

// item implements btree.Item over an arbitrary comparable key + payload.
type item struct {
	key   uint64
	value interface{}
}

func (i *item) Less(than btree.Item) bool { return i.key < than.(*item).key }

// simpleStore is the shared "dense B+-tree keyed store" shape spec.md
// §4.6 asks for Warehouse/District/Item to use.
type simpleStore struct {
	tree *btree.BTree
}

func newSimpleStore() *simpleStore { return &simpleStore{tree: btree.New(degree)} }

func (s *simpleStore) insert(key uint64, value interface{}) error {
	if s.tree.Has(&item{key: key}) {
		return fmt.Errorf("%w: key %d", terrors.ErrDuplicateKey, key)
	}
	s.tree.ReplaceOrInsert(&item{key: key, value: value})
	return nil
}

func (s *simpleStore) get(key uint64) interface{} {
	found := s.tree.Get(&item{key: key})
	if found == nil {
		return nil
	}
	return found.(*item).value
}

func (s *simpleStore) len() int { return s.tree.Len() }

// WarehouseKey/DistrictKey/ItemKey are the deterministic key derivations
// from spec.md §3.
func WarehouseKey(wID int32) uint64 { return uint64(wID) }
func DistrictKey(wID, dID int32) uint64 {
	return uint64(wID)<<32 | uint64(uint32(dID))
}
func ItemKey(iID int32) uint64 { return uint64(iID) }

type WarehouseStore struct{ s *simpleStore }

func NewWarehouseStore() *WarehouseStore { return &WarehouseStore{s: newSimpleStore()} }

func (w *WarehouseStore) Insert(row *schema.Warehouse) error {
	return w.s.insert(WarehouseKey(row.WID), row)
}
func (w *WarehouseStore) Find(wID int32) *schema.Warehouse {
	v := w.s.get(WarehouseKey(wID))
	if v == nil {
		return nil
	}
	return v.(*schema.Warehouse)
}
func (w *WarehouseStore) Len() int { return w.s.len() }

type DistrictStore struct{ s *simpleStore }

func NewDistrictStore() *DistrictStore { return &DistrictStore{s: newSimpleStore()} }

func (d *DistrictStore) Insert(row *schema.District) error {
	return d.s.insert(DistrictKey(row.WID, row.DID), row)
}
func (d *DistrictStore) Find(wID, dID int32) *schema.District {
	v := d.s.get(DistrictKey(wID, dID))
	if v == nil {
		return nil
	}
	return v.(*schema.District)
}
func (d *DistrictStore) Len() int { return d.s.len() }

type ItemStore struct{ s *simpleStore }

func NewItemStore() *ItemStore { return &ItemStore{s: newSimpleStore()} }

func (t *ItemStore) Insert(row *schema.Item) error { return t.s.insert(ItemKey(row.IID), row) }
func (t *ItemStore) Find(iID int32) *schema.Item {
	v := t.s.get(ItemKey(iID))
	if v == nil {
		return nil
	}
	return v.(*schema.Item)
}
func (t *ItemStore) Len() int { return t.s.len() }

// HistoryStore is the append-only vector from spec.md §4.6.
type HistoryStore struct {
	rows []*schema.History
}

func NewHistoryStore() *HistoryStore { return &HistoryStore{} }

func (h *HistoryStore) Append(row *schema.History) { h.rows = append(h.rows, row) }
func (h *HistoryStore) Len() int                   { return len(h.rows) }
func (h *HistoryStore) All() []*schema.History     { return h.rows }
