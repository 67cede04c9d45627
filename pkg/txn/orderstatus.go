package txn

import (
	"fmt"

	"tpccstore/pkg/keys"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// OrderStatusLine is one read-only orderline projection.
type OrderStatusLine struct {
	ItemID    int32
	SupplyWID int32
	Quantity  int32
	Amount    float64
	DeliveryD string
}

// OrderStatusResult is the read-only view order-status returns.
type OrderStatusResult struct {
	CID                 int32
	CustLast, CustFirst string
	CustCredit          string
	CustBalance         int64
	OID, OLCount        int32
	OrderEntryD         string
	CarrierID           int32
	Lines               []OrderStatusLine
}

// OrderStatus runs the TPC-C order-status transaction: read-only, reading
// customer slots `[0..13)` and, for the customer's most recent order,
// orderline slots `[0..6)`, per spec.md §4.7.
func (f *Facade) OrderStatus(wID, dID, cID int32, custLast string) (*OrderStatusResult, error) {
	key, err := f.resolveCustomerKey(wID, dID, cID, custLast)
	if err != nil {
		return nil, fail("order-status", err)
	}
	row, err := f.customer.Find(key, schema.CustFirstSlot+2)
	if err != nil {
		return nil, fail("order-status", err)
	}
	if row == nil {
		return nil, fail("order-status", fmt.Errorf("unknown customer (%d,%d,%d)", wID, dID, cID))
	}

	result := &OrderStatusResult{
		CID:         int32(row.GetEnum(0)),
		CustLast:    row.GetStr(schema.CustLastSlot),
		CustFirst:   row.GetStr(schema.CustFirstSlot),
		CustBalance: row.GetEnum(schema.CustBalanceSlot),
	}
	result.CustCredit = f.enums.Reveal(schema.RelCustomer, schema.CustCreditSlot, row.GetEnum(schema.CustCreditSlot))

	order := f.orders.FindLastByCustomer(wID, dID, result.CID)
	if order == nil {
		return result, nil
	}
	result.OID = order.OID
	result.OLCount = order.OLCount
	result.OrderEntryD = order.EntryD
	result.CarrierID = order.CarrierID

	for n := int32(1); n <= order.OLCount; n++ {
		olKey := store.Key(keys.OrderLine(wID, dID, order.OID, n))
		olRow, err := f.orderLine.Find(olKey, 6)
		if err != nil {
			return nil, fail("order-status", err)
		}
		if olRow == nil {
			continue
		}
		result.Lines = append(result.Lines, OrderStatusLine{
			ItemID:    int32(olRow.GetEnum(0)),
			Amount:    olRow.GetReal(1),
			SupplyWID: int32(olRow.GetEnum(3)),
			Quantity:  int32(olRow.GetEnum(4)),
			DeliveryD: olRow.GetStr(schema.OLDeliveryDSlot),
		})
	}
	return result, nil
}
