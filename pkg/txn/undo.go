package txn

// UndoLog records, for the duration of one transaction, closures that
// revert each mutation performed so far. Spec.md §4.7 singles out
// new-order as the one transaction that can fail mid-flight on business
// grounds (an invalid item id), but §7's IoFailure policy ("aborts the
// current transaction") applies to any of the five — a disk-tier write can
// fail partway through payment or delivery just as well. Rather than
// discard undo for the "always-committing" transactions as spec.md §4.7
// permits, every mutating transaction here records one, so an IoFailure
// partway through never leaves a half-applied payment or delivery.
type UndoLog struct {
	entries []func()
}

func newUndoLog() *UndoLog { return &UndoLog{} }

// record appends a revert action; actions replay in reverse order.
func (u *UndoLog) record(revert func()) {
	u.entries = append(u.entries, revert)
}

// rollback replays every recorded revert action, most recent first, then
// clears the log.
func (u *UndoLog) rollback() {
	for i := len(u.entries) - 1; i >= 0; i-- {
		u.entries[i]()
	}
	u.entries = nil
}

// commit discards the log without replaying it — the transaction
// succeeded and its mutations stand.
func (u *UndoLog) commit() {
	u.entries = nil
}
