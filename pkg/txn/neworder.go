package txn

import (
	"fmt"

	"tpccstore/pkg/external"
	"tpccstore/pkg/keys"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// NewOrderLineResult is one priced line item returned to the driver.
type NewOrderLineResult struct {
	ItemID    int32
	ItemName  string
	SupplyWID int32
	Quantity  int32
	Price     float64
	Amount    float64
	StockQty  int32
}

// NewOrderResult is everything the TPC-C new-order transaction profile
// asks the driver to display.
type NewOrderResult struct {
	WID, DID, OID int32
	CustLast      string
	CustCredit    string
	CustDiscount  float64
	WTax, DTax    float64
	Lines         []NewOrderLineResult
	Total         float64
}

const newOrderInvalidItem = "item number is not valid"

// NewOrder runs the TPC-C new-order transaction for wID/dID/cID against the
// given line items. Per spec.md §4.7, every item id is validated before any
// row is mutated — an invalid item aborts the whole transaction with no
// partial writes.
func (f *Facade) NewOrder(wID, dID, cID int32, items []external.NewOrderItem) (*NewOrderResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("new-order: %s", newOrderInvalidItem)
	}

	warehouse := f.warehouses.Find(wID)
	if warehouse == nil {
		return nil, fail("new-order", fmt.Errorf("unknown warehouse %d", wID))
	}
	district := f.districts.Find(wID, dID)
	if district == nil {
		return nil, fail("new-order", fmt.Errorf("unknown district (%d,%d)", wID, dID))
	}

	itemRows := make([]*schema.Item, len(items))
	for i, it := range items {
		row := f.items.Find(it.ItemID)
		if row == nil {
			return nil, fmt.Errorf("new-order: %s", newOrderInvalidItem)
		}
		itemRows[i] = row
	}

	custKey := store.Key(keys.Customer(wID, dID, cID))
	custRow, err := f.customer.Find(custKey, schema.CustLastSlot+1)
	if err != nil {
		return nil, fail("new-order", err)
	}
	if custRow == nil {
		return nil, fail("new-order", fmt.Errorf("unknown customer (%d,%d,%d)", wID, dID, cID))
	}
	custDiscount := custRow.GetReal(schema.CustDiscountSlot)
	custCredit := f.enums.Reveal(schema.RelCustomer, schema.CustCreditSlot, custRow.GetEnum(schema.CustCreditSlot))
	custLast := custRow.GetStr(schema.CustLastSlot)

	oID := district.NextOID
	district.NextOID++

	allLocal := true
	for _, it := range items {
		if it.SupplyWID != wID {
			allLocal = false
			break
		}
	}

	orderRow := &schema.Order{
		WID: wID, DID: dID, OID: oID,
		CID:       cID,
		EntryD:    f.clock.Now().Format("2006-01-02T15:04:05"),
		CarrierID: 0,
		OLCount:   int32(len(items)),
		AllLocal:  allLocal,
	}
	if err := f.orders.Insert(orderRow); err != nil {
		return nil, fail("new-order", err)
	}
	f.undo.record(func() { district.NextOID-- })
	f.newOrders.Insert(wID, dID, oID)
	f.undo.record(func() { f.newOrders.Remove(wID, dID, oID) })

	result := &NewOrderResult{
		WID: wID, DID: dID, OID: oID,
		CustLast: custLast, CustCredit: custCredit, CustDiscount: custDiscount,
		WTax: warehouse.Tax, DTax: district.Tax,
	}

	for i, it := range items {
		stockKey := store.Key(keys.Stock(it.SupplyWID, it.ItemID))
		var distInfo string
		var newQty int32
		var prevQty, prevYtd, prevOrderCnt, prevRemoteCnt int64
		err := f.stock.Update(stockKey, schema.StockQtySlot, schema.StockRemoteCntSlot+1, func(row *schema.AttrVector) {
			qty := int32(row.GetInt(schema.StockQtySlot))
			ytd := row.GetEnum(schema.StockYtdSlot)
			orderCnt := row.GetEnum(schema.StockOrderCntSlot)
			remoteCnt := int32(row.GetInt(schema.StockRemoteCntSlot))
			prevQty, prevYtd, prevOrderCnt, prevRemoteCnt = int64(qty), ytd, orderCnt, int64(remoteCnt)

			// tpcctables.cc:421: the wrap compares the ORIGINAL quantity
			// against ol_quantity+10, not the already-decremented value.
			if qty >= it.Quantity+10 {
				newQty = qty - it.Quantity
			} else {
				newQty = qty - it.Quantity + 91
			}
			row.SetInt(schema.StockQtySlot, int64(newQty))
			row.SetEnum(schema.StockYtdSlot, ytd+int64(it.Quantity))

			newOrderCnt := orderCnt + 1
			if newOrderCnt > 100 {
				newOrderCnt = 1
			}
			row.SetEnum(schema.StockOrderCntSlot, newOrderCnt)

			if it.SupplyWID != wID {
				newRemoteCnt := remoteCnt + 1
				if newRemoteCnt > 100 {
					newRemoteCnt = 1
				}
				row.SetInt(schema.StockRemoteCntSlot, int64(newRemoteCnt))
			}
			distSlot := 5 + int(dID-1)
			distInfo = row.GetStr(distSlot)
		})
		if err != nil {
			f.undo.rollback()
			return nil, fail("new-order", err)
		}
		f.undo.record(func() {
			f.stock.Update(stockKey, schema.StockQtySlot, schema.StockRemoteCntSlot+1, func(row *schema.AttrVector) {
				row.SetInt(schema.StockQtySlot, prevQty)
				row.SetEnum(schema.StockYtdSlot, prevYtd)
				row.SetEnum(schema.StockOrderCntSlot, prevOrderCnt)
				row.SetInt(schema.StockRemoteCntSlot, prevRemoteCnt)
			})
		})

		item := itemRows[i]
		amount := float64(it.Quantity) * item.Price
		olRow := schema.New(schema.OrderLineSchema)
		olRow.SetEnum(0, int64(it.ItemID))
		olRow.SetReal(1, amount)
		olRow.SetEnum(2, int64(i+1))
		olRow.SetEnum(3, int64(it.SupplyWID))
		olRow.SetEnum(4, int64(it.Quantity))
		olRow.SetStr(schema.OLDeliveryDSlot, "")
		olRow.SetStr(6, distInfo)
		olRow.SetInt(7, int64(oID))
		olRow.SetEnum(8, int64(dID))
		olRow.SetEnum(9, int64(wID))

		olKey := store.Key(keys.OrderLine(wID, dID, oID, int32(i+1)))
		if _, err := f.orderLine.Insert(olKey, olRow, 0); err != nil {
			f.undo.rollback()
			return nil, fail("new-order", err)
		}
		f.undo.record(func() { f.orderLine.Erase(olKey) })

		result.Lines = append(result.Lines, NewOrderLineResult{
			ItemID: it.ItemID, ItemName: item.Name, SupplyWID: it.SupplyWID,
			Quantity: it.Quantity, Price: item.Price, Amount: amount, StockQty: newQty,
		})
		result.Total += amount
	}

	result.Total *= (1 - custDiscount) * (1 + warehouse.Tax + district.Tax)

	f.undo.commit()
	return result, nil
}
