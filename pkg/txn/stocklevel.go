package txn

import (
	"fmt"

	"tpccstore/pkg/keys"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// stockLevelWindow is the TPC-C standard's "last 20 orders" window.
const stockLevelWindow = 20

// StockLevel runs the TPC-C stock-level transaction: read-only, reading
// orderline slot `[0..1)` (i_id) for every line of the district's last 20
// orders, then stock slot `[0..1)` (quantity) for each distinct item,
// counting how many fall below threshold, per spec.md §4.7.
func (f *Facade) StockLevel(wID, dID, threshold int32) (int, error) {
	district := f.districts.Find(wID, dID)
	if district == nil {
		return 0, fail("stock-level", fmt.Errorf("unknown district (%d,%d)", wID, dID))
	}

	nextOID := district.NextOID
	loOID := nextOID - stockLevelWindow
	if loOID < 1 {
		loOID = 1
	}

	seen := make(map[int32]bool)
	low := 0

	for oID := loOID; oID < nextOID; oID++ {
		order := f.orders.Find(wID, dID, oID)
		if order == nil {
			continue
		}
		for n := int32(1); n <= order.OLCount; n++ {
			olKey := store.Key(keys.OrderLine(wID, dID, oID, n))
			olRow, err := f.orderLine.Find(olKey, 1)
			if err != nil {
				return 0, fail("stock-level", err)
			}
			if olRow == nil {
				continue
			}
			iID := int32(olRow.GetEnum(0))
			if seen[iID] {
				continue
			}
			seen[iID] = true

			stockKey := store.Key(keys.Stock(wID, iID))
			stRow, err := f.stock.Find(stockKey, 1)
			if err != nil {
				return 0, fail("stock-level", err)
			}
			if stRow == nil {
				continue
			}
			if int32(stRow.GetInt(schema.StockQtySlot)) < threshold {
				low++
			}
		}
	}
	return low, nil
}
