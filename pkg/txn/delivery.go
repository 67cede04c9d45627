package txn

import (
	"fmt"

	"tpccstore/internal/terrors"
	"tpccstore/pkg/keys"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// DeliveredOrder is one district's extracted new-order, carried back to the
// driver per spec.md §8 scenario 5.
type DeliveredOrder struct {
	DID, OID int32
}

// Delivery runs the TPC-C delivery transaction for every district of wID
// under carrierID. Per spec.md §4.7/§5: for each district, the smallest
// outstanding o_id is extracted from the NewOrder ordered map and that
// extraction is atomic (no yield in between) with the Order row's
// o_carrier_id write. Orderline slots `[1..6)` are read, `ol_delivery_d` is
// mutated, and the owning customer's balance/delivery count are updated. A
// district with no outstanding new order is skipped, per the TPC-C
// standard.
func (f *Facade) Delivery(wID, carrierID int32) ([]DeliveredOrder, error) {
	var delivered []DeliveredOrder

	for dID := int32(1); dID <= 10; dID++ {
		oID, ok := f.newOrders.LowerBound(wID, dID)
		if !ok {
			continue
		}
		f.newOrders.Remove(wID, dID, oID)
		f.undo.record(func() { f.newOrders.Insert(wID, dID, oID) })

		order := f.orders.Find(wID, dID, oID)
		if order == nil {
			f.undo.rollback()
			return nil, fail("delivery", fmt.Errorf("%w: order (%d,%d,%d)", terrors.ErrKeyNotFound, wID, dID, oID))
		}
		prevCarrier := order.CarrierID
		order.CarrierID = carrierID
		f.undo.record(func() { order.CarrierID = prevCarrier })

		now := f.clock.Now().Format("2006-01-02T15:04:05")
		var total float64
		for n := int32(1); n <= order.OLCount; n++ {
			olKey := store.Key(keys.OrderLine(wID, dID, oID, n))
			err := f.orderLine.Update(olKey, schema.OLDeliveryDSlot, schema.OLDeliveryDSlot+1, func(row *schema.AttrVector) {
				total += row.GetReal(1)
				row.SetStr(schema.OLDeliveryDSlot, now)
			})
			if err != nil {
				f.undo.rollback()
				return nil, fail("delivery", err)
			}
		}

		custKey := store.Key(keys.Customer(wID, dID, order.CID))
		err := f.customer.Update(custKey, schema.CustBalanceSlot, schema.CustDeliveryCnt+1, func(row *schema.AttrVector) {
			balance := row.GetEnum(schema.CustBalanceSlot)
			delivCnt := row.GetEnum(schema.CustDeliveryCnt)
			row.SetEnum(schema.CustBalanceSlot, fixedFromFloat64(float64FromFixed(balance)+total))
			row.SetEnum(schema.CustDeliveryCnt, delivCnt+1)
		})
		if err != nil {
			f.undo.rollback()
			return nil, fail("delivery", err)
		}

		delivered = append(delivered, DeliveredOrder{DID: dID, OID: oID})
	}

	f.undo.commit()
	return delivered, nil
}
