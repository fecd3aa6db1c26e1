package checkout

import (
	"errors"
	"testing"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

func TestChangeFlowConfirm(t *testing.T) {
	l := newTestLedger("1000")
	f := NewChangeFlow(l)

	if err := f.Begin(dec("1500")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if f.State() != ChangeStatePendingConfirmation {
		t.Fatalf("state = %v, want PendingConfirmation", f.State())
	}
	pending, ok := f.Pending()
	if !ok {
		t.Fatal("Pending() reported no tender")
	}
	if !pending.Tendered.Equal(dec("1500")) || !pending.Owed.Equal(dec("1000")) {
		t.Errorf("pending = (%s, %s), want (1500, 1000)", pending.Tendered, pending.Owed)
	}
	if !pending.Change().Equal(dec("500")) {
		t.Errorf("change = %s, want 500", pending.Change())
	}
	if len(l.Payments()) != 0 {
		t.Fatal("tender recorded a payment before confirmation")
	}

	p, err := f.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if p.Method != enum.PaymentMethodCash {
		t.Errorf("method = %s, want cash", p.Method)
	}
	if !p.Amount.Equal(dec("1000")) {
		t.Errorf("amount = %s, want 1000", p.Amount)
	}
	if want := "Cash received: 1500.00 - Change: 500.00"; p.Reference != want {
		t.Errorf("reference = %q, want %q", p.Reference, want)
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
	if f.State() != ChangeStateIdle {
		t.Errorf("state after confirm = %v, want Idle", f.State())
	}
}

func TestChangeFlowCancel(t *testing.T) {
	l := newTestLedger("1000")
	f := NewChangeFlow(l)

	if err := f.Begin(dec("2000")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	f.Cancel()

	if f.State() != ChangeStateIdle {
		t.Errorf("state after cancel = %v, want Idle", f.State())
	}
	if len(l.Payments()) != 0 {
		t.Error("cancelled tender recorded a payment")
	}
	if !l.Remaining().Equal(dec("1000")) {
		t.Errorf("remaining = %s, want 1000", l.Remaining())
	}

	// Cancelling while idle is a no-op.
	f.Cancel()
}

func TestChangeFlowSettlesOutstandingBalanceOnly(t *testing.T) {
	// With a prior card payment the confirmed cash payment settles what is
	// still owed, not the full sale total.
	l := newTestLedger("1000")
	if _, err := l.AddPayment(enum.PaymentMethodCard, dec("600"), "AUTH1"); err != nil {
		t.Fatalf("card payment: %v", err)
	}

	f := NewChangeFlow(l)
	if err := f.Begin(dec("500")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	p, err := f.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !p.Amount.Equal(dec("400")) {
		t.Errorf("amount = %s, want 400", p.Amount)
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
}

func TestChangeFlowRejections(t *testing.T) {
	l := newTestLedger("1000")
	f := NewChangeFlow(l)

	if err := f.Begin(dec("1000")); !errors.Is(err, ErrTenderTooSmall) {
		t.Errorf("exact tender: err = %v, want ErrTenderTooSmall", err)
	}
	if err := f.Begin(dec("500")); !errors.Is(err, ErrTenderTooSmall) {
		t.Errorf("short tender: err = %v, want ErrTenderTooSmall", err)
	}
	if _, err := f.Confirm(); !errors.Is(err, ErrNoTender) {
		t.Errorf("confirm while idle: err = %v, want ErrNoTender", err)
	}

	if err := f.Begin(dec("1200")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.Begin(dec("1300")); !errors.Is(err, ErrChangePending) {
		t.Errorf("second tender: err = %v, want ErrChangePending", err)
	}
}
