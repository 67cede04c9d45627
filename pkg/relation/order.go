package relation

import (
	"github.com/google/btree"

	"tpccstore/pkg/schema"
)

// OrderKey and OrderByCustomerKey are the deterministic key derivations
// from spec.md §3: primary (w_id,d_id,o_id) and secondary
// (w_id,d_id,c_id,o_id). Both pack their fields into a uint64 (w_id from
// bit 40 and bit 48 upward respectively) and are carried as uint64
// end-to-end.
func OrderKey(wID, dID, oID int32) uint64 {
	return uint64(uint32(wID))<<40 | uint64(uint32(dID))<<24 | uint64(uint32(oID))
}

func OrderByCustomerKey(wID, dID, cID, oID int32) uint64 {
	return uint64(uint32(wID))<<48 | uint64(uint32(dID))<<40 | uint64(uint32(cID))<<24 | uint64(uint32(oID))
}

type byCustomerItem struct {
	key   uint64
	order *schema.Order
}

func (b *byCustomerItem) Less(than btree.Item) bool {
	return b.key < than.(*byCustomerItem).key
}

// OrderStore is a B+-tree of owned Order rows plus the secondary
// (w_id,d_id,c_id,o_id) -> Order index order-status uses to find a
// customer's newest order, per spec.md §4.6/§9 ("Model as (primary_key)
// copies in the secondary structure, not borrowed pointers" — here the
// secondary tree holds the *schema.Order pointer directly since Order rows
// are never relocated once inserted, and FindLastByCustomer returns that
// pointer without going back through the primary tree).
type OrderStore struct {
	primary    *btree.BTree
	byCustomer *btree.BTree
}

func NewOrders() *OrderStore {
	return &OrderStore{primary: btree.New(degree), byCustomer: btree.New(degree)}
}

func (o *OrderStore) Insert(row *schema.Order) error {
	pk := OrderKey(row.WID, row.DID, row.OID)
	if err := (&simpleStore{tree: o.primary}).insert(pk, row); err != nil {
		return err
	}
	o.byCustomer.ReplaceOrInsert(&byCustomerItem{
		key:   OrderByCustomerKey(row.WID, row.DID, row.CID, row.OID),
		order: row,
	})
	return nil
}

func (o *OrderStore) Find(wID, dID, oID int32) *schema.Order {
	v := (&simpleStore{tree: o.primary}).get(OrderKey(wID, dID, oID))
	if v == nil {
		return nil
	}
	return v.(*schema.Order)
}

// FindLastByCustomer returns the newest (largest o_id) order for
// (w_id,d_id,c_id), per spec.md §4.6's find_last_less_than primitive: the
// secondary index is ordered so a customer's orders are contiguous with
// increasing o_id, and the newest is the last one strictly before the key
// space for the next customer id.
func (o *OrderStore) FindLastByCustomer(wID, dID, cID int32) *schema.Order {
	upperBound := OrderByCustomerKey(wID, dID, cID, int32(0x00FFFFFF))
	var found *schema.Order
	o.byCustomer.DescendLessOrEqual(&byCustomerItem{key: upperBound}, func(bi btree.Item) bool {
		e := bi.(*byCustomerItem)
		if e.order.WID == wID && e.order.DID == dID && e.order.CID == cID {
			found = e.order
			return false
		}
		// Not this customer any more (we've walked past their range);
		// keep descending only while still inside w_id/d_id.
		return e.order.WID == wID && e.order.DID == dID
	})
	return found
}

func (o *OrderStore) Len() int { return o.primary.Len() }
