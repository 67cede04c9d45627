package txn

import (
	"fmt"

	"tpccstore/pkg/keys"
	"tpccstore/pkg/schema"
	"tpccstore/pkg/store"
)

// PaymentInput identifies the paying customer either by id (CID != 0) or by
// last name (TPC-C clause 2.6.2's ceil(n/2) lookup), matching the standard's
// two payment-transaction entry points.
type PaymentInput struct {
	WID, DID         int32
	CustWID, CustDID int32
	CID              int32
	CustLast         string
	Amount           float64
}

// PaymentResult is what the driver displays after a payment commits.
type PaymentResult struct {
	CID         int32
	CustBalance float64
	CustCredit  string
	CustData    string
	WName, DName string
}

const custDataMaxLen = 500

// Payment runs the TPC-C payment transaction, per spec.md §4.7: reads the
// customer's full row, mutates c_balance/c_ytd_payment/c_payment_cnt, and
// for bad-credit customers prepends a history note to c_data, truncated at
// 500 bytes.
func (f *Facade) Payment(in PaymentInput) (*PaymentResult, error) {
	warehouse := f.warehouses.Find(in.WID)
	if warehouse == nil {
		return nil, fail("payment", fmt.Errorf("unknown warehouse %d", in.WID))
	}
	district := f.districts.Find(in.WID, in.DID)
	if district == nil {
		return nil, fail("payment", fmt.Errorf("unknown district (%d,%d)", in.WID, in.DID))
	}

	custKey, err := f.resolveCustomerKey(in.CustWID, in.CustDID, in.CID, in.CustLast)
	if err != nil {
		return nil, fail("payment", err)
	}

	wYTDBefore, dYTDBefore := warehouse.YTD, district.YTD
	warehouse.YTD += in.Amount
	district.YTD += in.Amount
	f.undo.record(func() { warehouse.YTD = wYTDBefore; district.YTD = dYTDBefore })

	result := &PaymentResult{WName: warehouse.Name, DName: district.Name}

	err = f.customer.Update(custKey, schema.CustBalanceSlot, schema.CustDataSlot+1, func(row *schema.AttrVector) {
		result.CID = int32(row.GetEnum(0))
		balance := row.GetEnum(schema.CustBalanceSlot)
		ytd := row.GetReal(schema.CustYtdPaySlot)
		cnt := row.GetReal(schema.CustPaymentCnt)

		newBalance := float64FromFixed(balance) - in.Amount
		row.SetEnum(schema.CustBalanceSlot, fixedFromFloat64(newBalance))
		row.SetReal(schema.CustYtdPaySlot, ytd+in.Amount)
		row.SetReal(schema.CustPaymentCnt, cnt+1)

		result.CustBalance = newBalance
		result.CustCredit = f.enums.Reveal(schema.RelCustomer, schema.CustCreditSlot, row.GetEnum(schema.CustCreditSlot))
		if result.CustCredit == "BC" {
			note := fmt.Sprintf(" %d %d %d %d %d $%.2f", result.CID, in.CustDID, in.CustWID, in.DID, in.WID, in.Amount)
			data := note + row.GetStr(schema.CustDataSlot)
			if len(data) > custDataMaxLen {
				data = data[:custDataMaxLen]
			}
			row.SetStr(schema.CustDataSlot, data)
			result.CustData = data
		}
	})
	if err != nil {
		f.undo.rollback()
		return nil, fail("payment", err)
	}

	f.history.Append(&schema.History{
		CID: result.CID, CDID: in.CustDID, CWID: in.CustWID,
		DID: in.DID, WID: in.WID,
		Date:   f.clock.Now().Format("2006-01-02T15:04:05"),
		Amount: in.Amount,
		Data:   trimTo(warehouse.Name+"    "+district.Name, 24),
	})

	f.undo.commit()
	return result, nil
}

// resolveCustomerKey looks a customer up by id (cID != 0) or, per TPC-C
// clause 2.6.2, by the ceil(n/2)-th match on last name within the district.
func (f *Facade) resolveCustomerKey(custWID, custDID, cID int32, custLast string) (store.Key, error) {
	if cID != 0 {
		return store.Key(keys.Customer(custWID, custDID, cID)), nil
	}
	ref, ok := f.custByName.FindByName(custWID, custDID, custLast)
	if !ok {
		return 0, fmt.Errorf("unknown customer (%d,%d,%s)", custWID, custDID, custLast)
	}
	return ref.Key, nil
}

func trimTo(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// c_balance is modelled as an Enum slot (spec.md §6's "balance(Enum 1)")
// since the learned compressor treats near-constant columns as enums; the
// value is still an arbitrary signed cents amount, stored as the slot's raw
// int64 payload (not interned through the enum catalogue) rather than a
// small bounded code.
func float64FromFixed(v int64) float64 { return float64(v) / 100 }
func fixedFromFloat64(v float64) int64 { return int64(v*100 + 0.5) }
