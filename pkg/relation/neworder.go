package relation

import (
	"github.com/google/btree"
)

// NewOrderKey is spec.md §3's (w_id,d_id,o_id) -> 64-bit derivation.
func NewOrderKey(wID, dID, oID int32) uint64 {
	return uint64(uint32(wID))<<40 | uint64(uint32(dID))<<24 | uint64(uint32(oID))
}

type newOrderItem struct {
	key           uint64
	wID, dID, oID int32
}

func (n *newOrderItem) Less(than btree.Item) bool { return n.key < than.(*newOrderItem).key }

// NewOrderStore is the ordered map from spec.md §4.6: delivery extracts
// the smallest o_id per (w_id,d_id) via LowerBound.
type NewOrderStore struct {
	tree *btree.BTree
}

func NewNewOrderStore() *NewOrderStore { return &NewOrderStore{tree: btree.New(degree)} }

func (n *NewOrderStore) Insert(wID, dID, oID int32) {
	n.tree.ReplaceOrInsert(&newOrderItem{key: NewOrderKey(wID, dID, oID), wID: wID, dID: dID, oID: oID})
}

// LowerBound returns the smallest-o_id entry for (w_id,d_id), or ok=false
// if that district has no outstanding new orders (spec.md §4.6).
func (n *NewOrderStore) LowerBound(wID, dID int32) (oID int32, ok bool) {
	lo := NewOrderKey(wID, dID, 1)
	var result *newOrderItem
	n.tree.AscendGreaterOrEqual(&newOrderItem{key: lo}, func(bi btree.Item) bool {
		e := bi.(*newOrderItem)
		if e.wID != wID || e.dID != dID {
			return false
		}
		result = e
		return false
	})
	if result == nil {
		return 0, false
	}
	return result.oID, true
}

// Remove deletes the (w_id,d_id,o_id) entry. Spec.md §5 requires this be
// atomic with the paired Order.CarrierID write; both happen inside
// pkg/txn's Delivery, which calls LowerBound, Remove, and the Order
// update without yielding in between — the single-threaded execution
// model (spec.md §5) makes that sequencing indivisible with respect to
// every other operation this process performs.
func (n *NewOrderStore) Remove(wID, dID, oID int32) {
	n.tree.Delete(&newOrderItem{key: NewOrderKey(wID, dID, oID)})
}

func (n *NewOrderStore) Len() int { return n.tree.Len() }
