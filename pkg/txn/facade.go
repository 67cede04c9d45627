// Package txn is the transaction façade from spec.md §4.7: the five
// TPC-C transactions, each executed to completion by a single thread, with
// the exact partial-column read/mutate contracts spec.md lists for every
// one of them.
package txn

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"tpccstore/pkg/enumcat"
	"tpccstore/pkg/external"
	"tpccstore/pkg/keys"
	"tpccstore/pkg/model"
	"tpccstore/pkg/relation"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// Facade wires one TieredStore per compressible relation plus every small
// uncompressed relation store into the five TPC-C transactions.
type Facade struct {
	acct *store.Accountant

	stock     *store.TieredStore
	customer  *store.TieredStore
	orderLine *store.TieredStore

	warehouses *relation.WarehouseStore
	districts  *relation.DistrictStore
	items      *relation.ItemStore
	orders     *relation.OrderStore
	newOrders  *relation.NewOrderStore
	history    *relation.HistoryStore
	custByName *relation.CustomerByNameIndex

	enums *enumcat.Catalogue
	clock external.Clock
	undo  *UndoLog
}

// Samples bundles the bulk-load rows used to fit each compressible
// relation's model, per spec.md §3 ("fitted once during a learning pass
// over the initial bulk load").
type Samples struct {
	Stock     []*schema.AttrVector
	Customer  []*schema.AttrVector
	OrderLine []*schema.AttrVector
}

// NewFacade builds a Facade with budgetBytes as the global memory budget
// (negative means unbounded, per spec.md §8's memory_budget=infinity
// boundary behaviour) and workDir as the directory for the three
// compressible relations' scratch page files.
func NewFacade(budgetBytes int64, workDir string, clock external.Clock, samples Samples) *Facade {
	acct := store.NewAccountant(budgetBytes)

	stockModel := model.Fit(schema.StockSchema, samples.Stock)
	customerModel := model.Fit(schema.CustomerSchema, samples.Customer)
	orderLineModel := model.Fit(schema.OrderLineSchema, samples.OrderLine)

	f := &Facade{
		acct: acct,
		stock: store.New(schema.RelStock, schema.StockSchema, stockModel,
			schema.NewNativeCodec(schema.StockSchema), stockKeyOf, acct,
			filepath.Join(workDir, "stock.pagefile")),
		customer: store.New(schema.RelCustomer, schema.CustomerSchema, customerModel,
			schema.NewNativeCodec(schema.CustomerSchema), customerKeyOf, acct,
			filepath.Join(workDir, "customer.pagefile")),
		orderLine: store.New(schema.RelOrderLine, schema.OrderLineSchema, orderLineModel,
			schema.NewNativeCodec(schema.OrderLineSchema), orderLineKeyOf, acct,
			filepath.Join(workDir, "orderline.pagefile")),

		warehouses: relation.NewWarehouseStore(),
		districts:  relation.NewDistrictStore(),
		items:      relation.NewItemStore(),
		orders:     relation.NewOrders(),
		newOrders:  relation.NewNewOrderStore(),
		history:    relation.NewHistoryStore(),
		custByName: relation.NewCustomerByNameIndex(),

		enums: enumcat.New(),
		clock: clock,
		undo:  newUndoLog(),
	}
	return f
}

func stockKeyOf(row *schema.AttrVector) store.Key {
	return store.Key(keys.Stock(int32(row.GetEnum(schema.StockSchema.Arity()-1)), int32(row.GetEnum(schema.StockSchema.Arity()-2))))
}

func customerKeyOf(row *schema.AttrVector) store.Key {
	return store.Key(keys.Customer(int32(row.GetEnum(2)), int32(row.GetEnum(1)), int32(row.GetEnum(0))))
}

func orderLineKeyOf(row *schema.AttrVector) store.Key {
	return store.Key(keys.OrderLine(int32(row.GetEnum(9)), int32(row.GetEnum(8)), int32(row.GetInt(7)), int32(row.GetEnum(2))))
}

// Close tears down every compressible relation's disk tier.
func (f *Facade) Close() error {
	for _, s := range []*store.TieredStore{f.stock, f.customer, f.orderLine} {
		if err := s.Close(); err != nil {
			return err
		}
	}
	return nil
}

// LoadWarehouse, LoadDistrict, LoadItem, LoadStock, LoadCustomer,
// LoadOrder, LoadNewOrder, LoadHistory are the bulk-load entry points the
// external generator (spec.md §1) drives at start-up, before any
// transaction runs.
func (f *Facade) LoadWarehouse(row *schema.Warehouse) error { return f.warehouses.Insert(row) }
func (f *Facade) LoadDistrict(row *schema.District) error   { return f.districts.Insert(row) }
func (f *Facade) LoadItem(row *schema.Item) error           { return f.items.Insert(row) }

// LoadStock interns s_data through the enum catalogue (spec.md §4.1) before
// inserting the row, rather than requiring the caller to pre-compute a
// catalogue id.
func (f *Facade) LoadStock(wID, iID int32, data string, row *schema.AttrVector) error {
	row.SetEnum(schema.StockDataSlot, f.enums.Intern(schema.RelStock, schema.StockDataSlot, 2000, data))
	_, err := f.stock.Insert(store.Key(keys.Stock(wID, iID)), row, 0)
	if err != nil {
		return err
	}
	f.acct.SetCatalogueBytes(f.enums.ByteSize())
	return nil
}

// LoadCustomer interns c_credit and c_state through the enum catalogue
// (spec.md §4.1) before inserting the row. c_id, d_id, w_id stay plain
// numeric Enum fields — they're primary-key components derived directly by
// stockKeyOf/customerKeyOf/orderLineKeyOf, not catalogued strings.
func (f *Facade) LoadCustomer(wID, dID, cID int32, credit, state string, row *schema.AttrVector) error {
	row.SetEnum(schema.CustCreditSlot, f.enums.Intern(schema.RelCustomer, schema.CustCreditSlot, 2, credit))
	row.SetEnum(schema.CustStateSlot, f.enums.Intern(schema.RelCustomer, schema.CustStateSlot, 50, state))
	_, err := f.customer.Insert(store.Key(keys.Customer(wID, dID, cID)), row, 0)
	if err != nil {
		return err
	}
	f.acct.SetCatalogueBytes(f.enums.ByteSize())
	last := row.GetStr(schema.CustLastSlot)
	first := row.GetStr(schema.CustFirstSlot)
	f.custByName.Insert(&relation.CustomerRef{WID: wID, DID: dID, Last: last, First: first, Key: store.Key(keys.Customer(wID, dID, cID))})
	return nil
}

func (f *Facade) LoadOrder(row *schema.Order) error { return f.orders.Insert(row) }

func (f *Facade) LoadNewOrder(wID, dID, oID int32) { f.newOrders.Insert(wID, dID, oID) }

func (f *Facade) LoadHistory(row *schema.History) { f.history.Append(row) }

func fail(op string, err error) error {
	logrus.Errorf("txn: %s failed: %v", op, err)
	return fmt.Errorf("%s: %w", op, err)
}
