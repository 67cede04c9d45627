// Package external declares the out-of-scope collaborators from spec.md
// §1/§6: the TPC-C random data generator, the transaction driver/client
// loop, the wall-clock source, and the CSV dumper. None of these are
// implemented here beyond one concrete Clock (SystemClock); the generator,
// driver loop, and dumper are deliberately left as interfaces for an
// embedding caller to supply.
package external

import (
	"time"

	"tpccstore/pkg/schema"
)

// NewOrderItem is one line item of a new-order request, the shape the
// TPC-C driver hands the façade.
type NewOrderItem struct {
	ItemID    int32
	SupplyWID int32
	Quantity  int32
}

// RowGenerator produces the initial bulk-load data set. The actual
// NURand-driven TPC-C generator lives outside this module (spec.md §1).
type RowGenerator interface {
	GenerateWarehouse(wID int32) *schema.Warehouse
	GenerateDistrict(wID, dID int32) *schema.District
	GenerateItem(iID int32) *schema.Item
	GenerateStock(wID, iID int32) *schema.AttrVector
	GenerateCustomer(wID, dID, cID int32) *schema.AttrVector
}

// TransactionDriver is the client loop that decides which of the five
// TPC-C transactions to issue next and with what parameters, per the
// standard's transaction mix. Left external per spec.md §1.
type TransactionDriver interface {
	NextTransaction() (name string, params interface{})
}

// Clock is the wall-clock source every transaction's "now" comes from.
type Clock interface {
	Now() time.Time
}

// SystemClock is the one concrete Clock this module provides. Tests use a
// fake instead.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CSVDumper writes mode-1 output per spec.md §6: one row per tuple,
// comma-separated in schema slot order, decimal for numerics, raw bytes
// for strings, no escaping.
type CSVDumper interface {
	DumpStock(rows []*schema.AttrVector) error
	DumpOrderLine(rows []*schema.AttrVector) error
	DumpCustomer(rows []*schema.AttrVector) error
	DumpHistory(rows []*schema.History) error
}
