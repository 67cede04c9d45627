package txn

import (
	"testing"
	"time"

	"tpccstore/pkg/external"
	"tpccstore/pkg/schema"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func newFixtureFacade(t *testing.T, budget int64) *Facade {
	t.Helper()

	stockSamples := make([]*schema.AttrVector, 0, 100)
	custSamples := make([]*schema.AttrVector, 0, 100)
	olSamples := make([]*schema.AttrVector, 0, 100)
	for i := 0; i < 100; i++ {
		stockSamples = append(stockSamples, newStockRow(1, int32(i+1), 50, "DISTINFODISTINFODISTINF"))
		custSamples = append(custSamples, newCustomerRow(1, 1, int32(i+1), "GOOD", 50.0, "GC"))
		ol := schema.New(schema.OrderLineSchema)
		ol.SetEnum(0, int64(i+1))
		ol.SetReal(1, 10.0)
		ol.SetEnum(2, 1)
		ol.SetEnum(3, 1)
		ol.SetEnum(4, 5)
		ol.SetStr(schema.OLDeliveryDSlot, "")
		ol.SetStr(6, "DISTINFODISTINFODISTINF")
		ol.SetInt(7, int64(i+1))
		ol.SetEnum(8, 1)
		ol.SetEnum(9, 1)
		olSamples = append(olSamples, ol)
	}

	f := NewFacade(budget, t.TempDir(), fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, Samples{
		Stock: stockSamples, Customer: custSamples, OrderLine: olSamples,
	})

	if err := f.LoadWarehouse(&schema.Warehouse{WID: 1, Name: "W1", Tax: 0.1, YTD: 0}); err != nil {
		t.Fatalf("LoadWarehouse: %v", err)
	}
	for dID := int32(1); dID <= 10; dID++ {
		if err := f.LoadDistrict(&schema.District{WID: 1, DID: dID, Name: "D", Tax: 0.05, YTD: 0, NextOID: 3001}); err != nil {
			t.Fatalf("LoadDistrict(%d): %v", dID, err)
		}
	}
	for iID := int32(1); iID <= 100; iID++ {
		if err := f.LoadItem(&schema.Item{IID: iID, Name: "item", Price: 12.5}); err != nil {
			t.Fatalf("LoadItem(%d): %v", iID, err)
		}
		row := newStockRow(1, iID, 50, "DISTINFODISTINFODISTINF")
		if err := f.LoadStock(1, iID, "ORIGINALORIGINAL", row); err != nil {
			t.Fatalf("LoadStock(%d): %v", iID, err)
		}
	}
	for cID := int32(1); cID <= 20; cID++ {
		credit := "GC"
		if cID == 2 {
			credit = "BC"
		}
		row := newCustomerRow(1, 1, cID, "SMITH", 100.0, credit)
		if err := f.LoadCustomer(1, 1, cID, credit, "OH", row); err != nil {
			t.Fatalf("LoadCustomer(%d): %v", cID, err)
		}
	}
	return f
}

// newStockRow builds a full Stock attribute vector in schema slot order:
// quantity, ytd, order_cnt, remote_cnt, data, dist x 10, i_id, w_id.
func newStockRow(wID, iID, qty int32, dist string) *schema.AttrVector {
	row := schema.New(schema.StockSchema)
	row.SetInt(schema.StockQtySlot, int64(qty))
	row.SetEnum(schema.StockYtdSlot, 0)
	row.SetEnum(schema.StockOrderCntSlot, 0)
	row.SetInt(schema.StockRemoteCntSlot, 0)
	row.SetEnum(4, 1) // data
	for i := 0; i < 10; i++ {
		row.SetStr(5+i, dist)
	}
	row.SetEnum(15, int64(iID))
	row.SetEnum(16, int64(wID))
	return row
}

// newCustomerRow builds a full Customer attribute vector in schema slot
// order (see schema.CustomerSchema). credit ("GC"/"BC") is carried here only
// to give the bulk-load samples a representative credit distribution to fit
// against — the real c_credit/c_state ids loaded via LoadCustomer come from
// the enum catalogue, not from this placeholder encoding.
func newCustomerRow(wID, dID, cID int32, last string, balance float64, credit string) *schema.AttrVector {
	row := schema.New(schema.CustomerSchema)
	row.SetEnum(0, int64(cID))
	row.SetEnum(1, int64(dID))
	row.SetEnum(2, int64(wID))
	row.SetReal(schema.CustDiscountSlot, 0.1)
	row.SetReal(4, 50000.0)
	row.SetEnum(schema.CustBalanceSlot, fixedFromFloat64(balance))
	row.SetReal(schema.CustYtdPaySlot, 0)
	row.SetReal(schema.CustPaymentCnt, 0)
	row.SetEnum(schema.CustDeliveryCnt, 0)
	creditCode := int64(0)
	if credit == "BC" {
		creditCode = 1
	}
	row.SetEnum(schema.CustCreditSlot, creditCode)
	row.SetStr(schema.CustLastSlot, last)
	row.SetStr(schema.CustFirstSlot, "FIRST")
	row.SetEnum(12, 0)
	row.SetStr(13, "street1")
	row.SetStr(14, "street2")
	row.SetStr(15, "city")
	row.SetEnum(schema.CustStateSlot, 1)
	row.SetStr(17, "12345")
	row.SetStr(18, "5551234567")
	row.SetStr(19, "2024-01-01T00:00:00") // since
	row.SetStr(schema.CustDataSlot, "")
	return row
}

func TestStockLevelCountsBelowThreshold(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	// 50 >= 35+10, so no restock wrap: item 1's stock drops to 15.
	items := []external.NewOrderItem{{ItemID: 1, SupplyWID: 1, Quantity: 35}}
	if _, err := f.NewOrder(1, 1, 1, items); err != nil {
		t.Fatalf("NewOrder: %v", err)
	}

	low, err := f.StockLevel(1, 1, 20)
	if err != nil {
		t.Fatalf("StockLevel: %v", err)
	}
	if low != 1 {
		t.Fatalf("StockLevel = %d, want 1 (item 1's stock dropped below threshold)", low)
	}
}

func TestStockLevelUnknownDistrictFails(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	if _, err := f.StockLevel(1, 99, 10); err == nil {
		t.Fatalf("expected an error for an unknown district")
	}
}

func TestNewOrderRejectsInvalidItem(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	items := []external.NewOrderItem{{ItemID: 9999, SupplyWID: 1, Quantity: 1}}
	_, err := f.NewOrder(1, 1, 1, items)
	if err == nil {
		t.Fatalf("expected an error for an invalid item id")
	}

	// no partial writes: the district's next-order counter must be unchanged
	d := f.districts.Find(1, 1)
	if d.NextOID != 3001 {
		t.Fatalf("invalid item aborted transaction but still advanced NextOID to %d", d.NextOID)
	}
}

func TestNewOrderHappyPath(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	items := []external.NewOrderItem{
		{ItemID: 1, SupplyWID: 1, Quantity: 5},
		{ItemID: 2, SupplyWID: 1, Quantity: 3},
	}
	result, err := f.NewOrder(1, 1, 1, items)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if result.OID != 3001 {
		t.Fatalf("OID = %d, want 3001", result.OID)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(result.Lines))
	}
	if result.Total <= 0 {
		t.Fatalf("Total = %v, want > 0", result.Total)
	}

	d := f.districts.Find(1, 1)
	if d.NextOID != 3002 {
		t.Fatalf("NextOID after NewOrder = %d, want 3002", d.NextOID)
	}
	if _, ok := f.newOrders.LowerBound(1, 1); !ok {
		t.Fatalf("expected an outstanding new-order entry after NewOrder")
	}
}

func TestPaymentBadCreditAppendsNote(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	res, err := f.Payment(PaymentInput{WID: 1, DID: 1, CustWID: 1, CustDID: 1, CID: 2, Amount: 25.0})
	if err != nil {
		t.Fatalf("Payment: %v", err)
	}
	if res.CustCredit != "BC" {
		t.Fatalf("CustCredit = %q, want BC", res.CustCredit)
	}
	if res.CustData == "" {
		t.Fatalf("expected a history note in CustData for a bad-credit customer")
	}
	if res.CustBalance != 75.0 {
		t.Fatalf("CustBalance = %v, want 75.0", res.CustBalance)
	}
}

func TestPaymentGoodCreditNoNote(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	res, err := f.Payment(PaymentInput{WID: 1, DID: 1, CustWID: 1, CustDID: 1, CID: 1, Amount: 10.0})
	if err != nil {
		t.Fatalf("Payment: %v", err)
	}
	if res.CustCredit != "GC" {
		t.Fatalf("CustCredit = %q, want GC", res.CustCredit)
	}
	if res.CustData != "" {
		t.Fatalf("good-credit customer should get no history note, got %q", res.CustData)
	}
}

func TestPaymentByLastName(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	res, err := f.Payment(PaymentInput{WID: 1, DID: 1, CustWID: 1, CustDID: 1, CustLast: "SMITH", Amount: 5.0})
	if err != nil {
		t.Fatalf("Payment: %v", err)
	}
	if res.CID == 0 {
		t.Fatalf("expected Payment-by-name to resolve a customer id")
	}
}

func TestDeliveryPicksOldestOutstandingOrder(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	items := []external.NewOrderItem{{ItemID: 1, SupplyWID: 1, Quantity: 1}}
	first, err := f.NewOrder(1, 1, 1, items)
	if err != nil {
		t.Fatalf("NewOrder 1: %v", err)
	}
	second, err := f.NewOrder(1, 1, 2, items)
	if err != nil {
		t.Fatalf("NewOrder 2: %v", err)
	}
	if second.OID <= first.OID {
		t.Fatalf("expected increasing order ids, got %d then %d", first.OID, second.OID)
	}

	delivered, err := f.Delivery(1, 7)
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	var d1 *DeliveredOrder
	for i := range delivered {
		if delivered[i].DID == 1 {
			d1 = &delivered[i]
		}
	}
	if d1 == nil {
		t.Fatalf("expected district 1 to have a delivered order")
	}
	if d1.OID != first.OID {
		t.Fatalf("Delivery picked OID %d, want the oldest outstanding order %d", d1.OID, first.OID)
	}

	order := f.orders.Find(1, 1, first.OID)
	if order.CarrierID != 7 {
		t.Fatalf("delivered order's CarrierID = %d, want 7", order.CarrierID)
	}
}

func TestDeliverySkipsDistrictWithNoOutstandingOrders(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	delivered, err := f.Delivery(1, 3)
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	if len(delivered) != 0 {
		t.Fatalf("expected no deliveries when no district has outstanding orders, got %d", len(delivered))
	}
}

func TestOrderStatusReflectsLatestOrder(t *testing.T) {
	f := newFixtureFacade(t, -1)
	defer f.Close()

	items := []external.NewOrderItem{{ItemID: 1, SupplyWID: 1, Quantity: 2}}
	placed, err := f.NewOrder(1, 1, 3, items)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}

	res, err := f.OrderStatus(1, 1, 3, "")
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if res.OID != placed.OID {
		t.Fatalf("OrderStatus.OID = %d, want %d", res.OID, placed.OID)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(res.Lines))
	}
}

func TestBudgetSpillStillServesReadsAndWrites(t *testing.T) {
	f := newFixtureFacade(t, 0) // force every compressible relation to disk
	defer f.Close()

	// item 1's disk-tier stock drops from 50 to 15, below the threshold of 20
	items := []external.NewOrderItem{{ItemID: 1, SupplyWID: 1, Quantity: 35}}
	if _, err := f.NewOrder(1, 1, 1, items); err != nil {
		t.Fatalf("NewOrder under budget=0: %v", err)
	}
	if f.stock.OnDiskCount() == 0 {
		t.Fatalf("expected budget=0 to spill the stock relation to disk")
	}

	res, err := f.Payment(PaymentInput{WID: 1, DID: 1, CustWID: 1, CustDID: 1, CID: 1, Amount: 15.0})
	if err != nil {
		t.Fatalf("Payment under budget=0: %v", err)
	}
	if res.CustBalance != 85.0 {
		t.Fatalf("CustBalance under budget=0 = %v, want 85.0", res.CustBalance)
	}

	low, err := f.StockLevel(1, 1, 20)
	if err != nil {
		t.Fatalf("StockLevel under budget=0: %v", err)
	}
	if low != 1 {
		t.Fatalf("StockLevel under budget=0 = %d, want 1", low)
	}
}
