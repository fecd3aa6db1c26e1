package checkout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// Errors returned by the payment ledger.
var (
	ErrAmountNotPositive     = errors.New("payment amount must be positive")
	ErrReferenceRequired     = errors.New("payment reference is required for this method")
	ErrOverpaymentNotAllowed = errors.New("payment exceeds remaining balance")
	ErrMethodNotSupported    = errors.New("payment method is not offered")
)

// CashOverpaymentError signals that a cash tender exceeds the remaining
// balance. It is not a rejection: the caller must resolve it through the
// change confirmation flow before any payment is recorded.
type CashOverpaymentError struct {
	Tendered  decimal.Decimal
	Remaining decimal.Decimal
}

func (e *CashOverpaymentError) Error() string {
	return fmt.Sprintf("cash tendered %s exceeds remaining balance %s",
		e.Tendered.StringFixed(2), e.Remaining.StringFixed(2))
}

// Payment is a single recorded tender on the in-progress sale.
type Payment struct {
	ID        uuid.UUID
	Method    enum.PaymentMethod
	Amount    decimal.Decimal
	Reference string
}

// Ledger maintains the ordered sequence of payments for one in-progress sale
// and the derived remaining balance. It is in-memory only: on finalize the
// recorded payments are persisted with the sale and the ledger is discarded.
//
// A ledger is built and mutated by a single session; it is not safe for
// concurrent use.
type Ledger struct {
	total    decimal.Decimal
	catalog  MethodCatalog
	payments []Payment
}

// NewLedger creates a ledger for a sale with the given payable total.
// A nil catalog falls back to the hardcoded default method set.
func NewLedger(total decimal.Decimal, catalog MethodCatalog) *Ledger {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Ledger{total: total, catalog: catalog}
}

// Total returns the payable total the ledger reconciles against.
func (l *Ledger) Total() decimal.Decimal {
	return l.total
}

// Paid returns the sum of all recorded payment amounts.
func (l *Ledger) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range l.payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Remaining returns total - paid.
func (l *Ledger) Remaining() decimal.Decimal {
	return l.total.Sub(l.Paid())
}

// Payments returns a copy of the recorded payments in insertion order.
func (l *Ledger) Payments() []Payment {
	out := make([]Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

// AddPayment validates and records one tender.
//
// Credit ignores the supplied amount and always absorbs exactly the
// outstanding balance. A cash tender above the remaining balance records
// nothing and returns *CashOverpaymentError; the change confirmation flow
// resolves it. Any other method above the remaining balance is rejected.
func (l *Ledger) AddPayment(method enum.PaymentMethod, amount decimal.Decimal, reference string) (*Payment, error) {
	info, ok := l.catalog.Get(method)
	if !ok {
		return nil, ErrMethodNotSupported
	}

	if method != enum.PaymentMethodCredit && amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrAmountNotPositive
	}
	if info.RequiresReference && reference == "" {
		return nil, ErrReferenceRequired
	}

	remaining := l.Remaining()

	switch {
	case method == enum.PaymentMethodCredit:
		amount = remaining
	case method == enum.PaymentMethodCash && amount.GreaterThan(remaining):
		return nil, &CashOverpaymentError{Tendered: amount, Remaining: remaining}
	case amount.GreaterThan(remaining):
		return nil, ErrOverpaymentNotAllowed
	}

	return l.append(method, amount, reference), nil
}

// RemovePayment removes a recorded payment and returns the new remaining
// balance. Always allowed pre-finalize; the ledger may legitimately return
// to a fully unpaid state.
func (l *Ledger) RemovePayment(id uuid.UUID) decimal.Decimal {
	for i, p := range l.payments {
		if p.ID == id {
			l.payments = append(l.payments[:i], l.payments[i+1:]...)
			break
		}
	}
	return l.Remaining()
}

// CanFinalize reports whether the sale may be committed: the balance is
// settled, or a credit payment carries the remainder as accounts receivable.
func (l *Ledger) CanFinalize() bool {
	if !l.Remaining().IsPositive() {
		return true
	}
	for _, p := range l.payments {
		if p.Method == enum.PaymentMethodCredit {
			return true
		}
	}
	return false
}

// append records a payment without re-validating. Used internally and by the
// change confirmation flow once a tender has been confirmed.
func (l *Ledger) append(method enum.PaymentMethod, amount decimal.Decimal, reference string) *Payment {
	p := Payment{
		ID:        uuid.New(),
		Method:    method,
		Amount:    amount,
		Reference: reference,
	}
	l.payments = append(l.payments, p)
	// Return a copy, not a pointer into the slice: removals shift elements
	// and later appends reuse slots, which would mutate a held pointer.
	return &p
}
