package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// Errors returned by the change confirmation flow.
var (
	ErrChangePending  = errors.New("a cash tender is already awaiting confirmation")
	ErrNoTender       = errors.New("no cash tender is awaiting confirmation")
	ErrTenderTooSmall = errors.New("tendered amount does not exceed the remaining balance")
)

// ChangeState is the current state of the change confirmation flow.
type ChangeState int

const (
	ChangeStateIdle ChangeState = iota
	ChangeStatePendingConfirmation
)

// PendingTender holds a cash tender awaiting confirmation. Owed is the
// balance outstanding when the tender was made; Change() is informational
// only and is never recorded as a payment.
type PendingTender struct {
	Tendered decimal.Decimal
	Owed     decimal.Decimal
}

// Change returns the change due back to the customer.
func (t PendingTender) Change() decimal.Decimal {
	return t.Tendered.Sub(t.Owed)
}

// ChangeFlow is the two-step commit for cash tenders that exceed the
// remaining balance: the tender is held until the operator confirms the
// change amount, and only then is a payment recorded on the ledger.
type ChangeFlow struct {
	ledger  *Ledger
	pending *PendingTender
}

// NewChangeFlow creates a change flow bound to the given ledger.
func NewChangeFlow(ledger *Ledger) *ChangeFlow {
	return &ChangeFlow{ledger: ledger}
}

// State returns the current flow state.
func (f *ChangeFlow) State() ChangeState {
	if f.pending != nil {
		return ChangeStatePendingConfirmation
	}
	return ChangeStateIdle
}

// Pending returns the tender awaiting confirmation, if any.
func (f *ChangeFlow) Pending() (PendingTender, bool) {
	if f.pending == nil {
		return PendingTender{}, false
	}
	return *f.pending, true
}

// Begin moves the flow to PendingConfirmation for a cash tender that exceeds
// the remaining balance. Nothing is recorded on the ledger yet.
func (f *ChangeFlow) Begin(tendered decimal.Decimal) error {
	if f.pending != nil {
		return ErrChangePending
	}
	remaining := f.ledger.Remaining()
	if !tendered.GreaterThan(remaining) {
		return ErrTenderTooSmall
	}
	f.pending = &PendingTender{Tendered: tendered, Owed: remaining}
	return nil
}

// Confirm records exactly one cash payment settling the outstanding balance
// and returns the flow to Idle. The reference documents the tendered amount
// and the change given.
func (f *ChangeFlow) Confirm() (*Payment, error) {
	if f.pending == nil {
		return nil, ErrNoTender
	}
	t := *f.pending
	f.pending = nil

	reference := fmt.Sprintf("Cash received: %s - Change: %s",
		t.Tendered.StringFixed(2), t.Change().StringFixed(2))
	return f.ledger.append(enum.PaymentMethodCash, t.Owed, reference), nil
}

// Cancel discards the pending tender and returns to Idle. No payment is
// recorded. Calling Cancel while Idle is a no-op.
func (f *ChangeFlow) Cancel() {
	f.pending = nil
}
