package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// testCatalog offers every known method, with references required for card
// and bank transfers.
func testCatalog() StaticCatalog {
	return StaticCatalog{
		enum.PaymentMethodCash:         {},
		enum.PaymentMethodCard:         {RequiresReference: true},
		enum.PaymentMethodMobileMoney:  {},
		enum.PaymentMethodBankTransfer: {RequiresReference: true},
		enum.PaymentMethodCheck:        {},
		enum.PaymentMethodGiftCard:     {},
		enum.PaymentMethodCredit:       {},
	}
}

func newTestLedger(total string) *Ledger {
	return NewLedger(dec(total), testCatalog())
}

func TestAddPaymentRejections(t *testing.T) {
	tests := []struct {
		name      string
		method    enum.PaymentMethod
		amount    string
		reference string
		wantErr   error
	}{
		{"zero amount", enum.PaymentMethodCash, "0", "", ErrAmountNotPositive},
		{"negative amount", enum.PaymentMethodCard, "-5", "AUTH1", ErrAmountNotPositive},
		{"missing reference", enum.PaymentMethodCard, "100", "", ErrReferenceRequired},
		{"missing reference on transfer", enum.PaymentMethodBankTransfer, "100", "", ErrReferenceRequired},
		{"card overpayment", enum.PaymentMethodCard, "1200", "AUTH1", ErrOverpaymentNotAllowed},
		{"gift card overpayment", enum.PaymentMethodGiftCard, "1001", "", ErrOverpaymentNotAllowed},
		{"unknown method", enum.PaymentMethod("barter"), "100", "", ErrMethodNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger("1000")
			_, err := l.AddPayment(tt.method, dec(tt.amount), tt.reference)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(l.Payments()) != 0 {
				t.Errorf("rejected payment mutated the ledger")
			}
			if !l.Remaining().Equal(dec("1000")) {
				t.Errorf("remaining = %s, want 1000", l.Remaining())
			}
		})
	}
}

// Reference enforcement holds for all positive amounts when the method
// requires one.
func TestReferenceRequiredForAllAmounts(t *testing.T) {
	for _, amount := range []string{"0.01", "1", "500", "1000"} {
		l := newTestLedger("1000")
		_, err := l.AddPayment(enum.PaymentMethodCard, dec(amount), "")
		if !errors.Is(err, ErrReferenceRequired) {
			t.Errorf("amount %s: err = %v, want ErrReferenceRequired", amount, err)
		}
	}
}

func TestExactCashPayment(t *testing.T) {
	l := newTestLedger("1000")

	p, err := l.AddPayment(enum.PaymentMethodCash, dec("1000"), "")
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if !p.Amount.Equal(dec("1000")) {
		t.Errorf("amount = %s, want 1000", p.Amount)
	}
	if got := l.Payments(); len(got) != 1 {
		t.Fatalf("payments = %d, want 1", len(got))
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
	if !l.CanFinalize() {
		t.Error("CanFinalize() = false, want true")
	}
}

func TestSplitPayment(t *testing.T) {
	l := newTestLedger("1000")

	if _, err := l.AddPayment(enum.PaymentMethodCard, dec("600"), "AUTH1"); err != nil {
		t.Fatalf("card payment: %v", err)
	}
	if !l.Remaining().Equal(dec("400")) {
		t.Fatalf("remaining after card = %s, want 400", l.Remaining())
	}
	if l.CanFinalize() {
		t.Error("CanFinalize() = true with balance outstanding")
	}

	if _, err := l.AddPayment(enum.PaymentMethodCash, dec("400"), ""); err != nil {
		t.Fatalf("cash payment: %v", err)
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
	if len(l.Payments()) != 2 {
		t.Errorf("payments = %d, want 2", len(l.Payments()))
	}
	if !l.CanFinalize() {
		t.Error("CanFinalize() = false, want true")
	}
}

// A credit payment absorbs exactly the outstanding balance no matter what
// amount the caller supplies.
func TestCreditAbsorption(t *testing.T) {
	for _, supplied := range []string{"0", "1", "999999", "-50"} {
		l := newTestLedger("1000")
		if _, err := l.AddPayment(enum.PaymentMethodCard, dec("250"), "AUTH1"); err != nil {
			t.Fatalf("card payment: %v", err)
		}

		p, err := l.AddPayment(enum.PaymentMethodCredit, dec(supplied), "")
		if err != nil {
			t.Fatalf("credit payment with amount %s: %v", supplied, err)
		}
		if !p.Amount.Equal(dec("750")) {
			t.Errorf("credit amount = %s, want 750 (supplied %s)", p.Amount, supplied)
		}
		if !l.Remaining().IsZero() {
			t.Errorf("remaining = %s, want 0", l.Remaining())
		}
		if !l.CanFinalize() {
			t.Error("CanFinalize() = false, want true")
		}
	}
}

func TestCreditSaleWithNoOtherPayments(t *testing.T) {
	l := newTestLedger("1000")

	p, err := l.AddPayment(enum.PaymentMethodCredit, dec("0"), "")
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if p.Method != enum.PaymentMethodCredit || !p.Amount.Equal(dec("1000")) {
		t.Errorf("payment = {%s %s}, want {credit 1000}", p.Method, p.Amount)
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
	if !l.CanFinalize() {
		t.Error("CanFinalize() = false, want true")
	}
}

func TestCashOverpaymentSignalsWithoutRecording(t *testing.T) {
	l := newTestLedger("1000")

	_, err := l.AddPayment(enum.PaymentMethodCash, dec("1500"), "")
	var overpay *CashOverpaymentError
	if !errors.As(err, &overpay) {
		t.Fatalf("err = %v, want *CashOverpaymentError", err)
	}
	if !overpay.Tendered.Equal(dec("1500")) || !overpay.Remaining.Equal(dec("1000")) {
		t.Errorf("signal = (%s, %s), want (1500, 1000)", overpay.Tendered, overpay.Remaining)
	}
	if len(l.Payments()) != 0 {
		t.Error("overpaying cash tender mutated the ledger")
	}
	if l.CanFinalize() {
		t.Error("CanFinalize() = true, want false")
	}
}

func TestRemovePayment(t *testing.T) {
	l := newTestLedger("1000")

	p1, err := l.AddPayment(enum.PaymentMethodCard, dec("600"), "AUTH1")
	if err != nil {
		t.Fatalf("card payment: %v", err)
	}
	if _, err := l.AddPayment(enum.PaymentMethodCash, dec("400"), ""); err != nil {
		t.Fatalf("cash payment: %v", err)
	}

	remaining := l.RemovePayment(p1.ID)
	if !remaining.Equal(dec("600")) {
		t.Errorf("remaining after removal = %s, want 600", remaining)
	}
	if len(l.Payments()) != 1 {
		t.Errorf("payments = %d, want 1", len(l.Payments()))
	}
	if l.CanFinalize() {
		t.Error("CanFinalize() = true after reopening balance")
	}
}

// remaining == total - sum(payments) after any succeeding sequence of
// adds and removals.
func TestLedgerBalanceInvariant(t *testing.T) {
	l := newTestLedger("1000")

	p1, _ := l.AddPayment(enum.PaymentMethodCard, dec("300"), "AUTH1")
	l.AddPayment(enum.PaymentMethodCash, dec("150.55"), "")
	p3, _ := l.AddPayment(enum.PaymentMethodGiftCard, dec("49.45"), "")
	l.RemovePayment(p1.ID)
	l.AddPayment(enum.PaymentMethodCheck, dec("200"), "")
	l.RemovePayment(p3.ID)

	paid := decimal.Zero
	for _, p := range l.Payments() {
		paid = paid.Add(p.Amount)
	}
	want := l.Total().Sub(paid)
	if !l.Remaining().Equal(want) {
		t.Errorf("remaining = %s, want %s", l.Remaining(), want)
	}
	if !paid.Equal(dec("350.55")) {
		t.Errorf("paid = %s, want 350.55", paid)
	}
}

func TestAddPaymentReturnsStableCopy(t *testing.T) {
	l := newTestLedger("1000")

	p1, _ := l.AddPayment(enum.PaymentMethodCard, dec("300"), "AUTH1")
	held, _ := l.AddPayment(enum.PaymentMethodGiftCard, dec("200"), "")

	// Removing an earlier payment and appending a new one must not change
	// what a previously returned payment refers to.
	l.RemovePayment(p1.ID)
	l.AddPayment(enum.PaymentMethodCheck, dec("100"), "")

	if held.Method != enum.PaymentMethodGiftCard || !held.Amount.Equal(dec("200")) {
		t.Fatalf("held payment changed: %+v", held)
	}

	l.RemovePayment(held.ID)
	for _, p := range l.Payments() {
		if p.Method == enum.PaymentMethodGiftCard {
			t.Error("removing the held payment deleted the wrong entry")
		}
	}
	if !l.Remaining().Equal(dec("900")) {
		t.Errorf("remaining = %s, want 900", l.Remaining())
	}
}

func TestCanFinalizeGating(t *testing.T) {
	l := newTestLedger("1000")
	if l.CanFinalize() {
		t.Error("empty ledger: CanFinalize() = true, want false")
	}

	l.AddPayment(enum.PaymentMethodCash, dec("999.99"), "")
	if l.CanFinalize() {
		t.Error("0.01 outstanding: CanFinalize() = true, want false")
	}

	l.AddPayment(enum.PaymentMethodCash, dec("0.01"), "")
	if !l.CanFinalize() {
		t.Error("settled: CanFinalize() = false, want true")
	}
}

func TestNegativeTotalIsImmediatelyFinalizable(t *testing.T) {
	// A discount above the subtotal produces a negative payable total; the
	// ledger treats it as settled.
	l := newTestLedger("-50")
	if !l.CanFinalize() {
		t.Error("CanFinalize() = false for negative total, want true")
	}
}

func TestNilCatalogFallsBackToDefaults(t *testing.T) {
	l := NewLedger(dec("100"), nil)

	if _, err := l.AddPayment(enum.PaymentMethodCash, dec("100"), ""); err != nil {
		t.Errorf("cash via fallback catalog: %v", err)
	}
	if _, err := l.AddPayment(enum.PaymentMethodMobileMoney, dec("10"), ""); !errors.Is(err, ErrMethodNotSupported) {
		t.Errorf("mobile money via fallback catalog: err = %v, want ErrMethodNotSupported", err)
	}
}
