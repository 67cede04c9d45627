package relation

import (
	"github.com/google/btree"

	"tpccstore/pkg/store"
)

// CustomerRef is a (primary_key) copy in the secondary by-name structure,
// not a borrowed pointer into the compressed tiered store — per spec.md
// §9's "Secondary-index back-references" note, so a future erase of the
// primary row can never leave a dangling reference here. Lookups resolve
// through the primary TieredStore by CustomerKey.
type CustomerRef struct {
	WID, DID int32
	Last     string
	First    string
	Key      store.Key
}

type byNameItem struct {
	ref *CustomerRef
}

func (b *byNameItem) Less(than btree.Item) bool {
	o := than.(*byNameItem).ref
	r := b.ref
	if r.WID != o.WID {
		return r.WID < o.WID
	}
	if r.DID != o.DID {
		return r.DID < o.DID
	}
	if r.Last != o.Last {
		return r.Last < o.Last
	}
	if r.First != o.First {
		return r.First < o.First
	}
	return r.Key < o.Key
}

// CustomerByNameIndex is the ordered set from spec.md §4.6, ordered by
// (w_id,d_id,c_last,c_first), with the customer key breaking ties so
// customers sharing a full name stay distinct entries.
type CustomerByNameIndex struct {
	tree *btree.BTree
}

func NewCustomerByNameIndex() *CustomerByNameIndex {
	return &CustomerByNameIndex{tree: btree.New(degree)}
}

func (idx *CustomerByNameIndex) Insert(ref *CustomerRef) {
	idx.tree.ReplaceOrInsert(&byNameItem{ref: ref})
}

// FindByName returns the ceil(n/2)-th customer matching (w_id,d_id,c_last)
// in first-name order, per TPC-C clause 2.6.2 / spec.md §4.6. ok=false if
// no customer with that last name exists in the district.
func (idx *CustomerByNameIndex) FindByName(wID, dID int32, last string) (ref *CustomerRef, ok bool) {
	lo := &byNameItem{ref: &CustomerRef{WID: wID, DID: dID, Last: last, First: ""}}
	hi := &byNameItem{ref: &CustomerRef{WID: wID, DID: dID, Last: last, First: "\xff\xff\xff\xff"}}

	var matches []*CustomerRef
	idx.tree.AscendRange(lo, hi, func(bi btree.Item) bool {
		matches = append(matches, bi.(*byNameItem).ref)
		return true
	})
	if len(matches) == 0 {
		return nil, false
	}
	n := (len(matches) + 1) / 2 // ceil(n/2), 1-indexed per TPC-C
	return matches[n-1], true
}

func (idx *CustomerByNameIndex) Len() int { return idx.tree.Len() }
