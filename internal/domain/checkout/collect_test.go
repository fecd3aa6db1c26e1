package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// fakeClock fires timers immediately so the polling loop runs without real
// sleeps. When blockAfter is positive, waits beyond that count never fire,
// leaving context cancellation as the only way out of the select.
type fakeClock struct {
	waits      int
	blockAfter int
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits++
	if c.blockAfter > 0 && c.waits > c.blockAfter {
		return make(chan time.Time)
	}
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// fakeGateway implements Gateway with configurable behavior.
type fakeGateway struct {
	initiateFn func(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	pollFn     func(ctx context.Context, checkoutID string) (PollResult, error)
	polls      int
}

func (g *fakeGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	return g.initiateFn(ctx, req)
}

func (g *fakeGateway) PollStatus(ctx context.Context, checkoutID string) (PollResult, error) {
	g.polls++
	return g.pollFn(ctx, checkoutID)
}

func okInitiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	return InitiateResult{CheckoutID: "ws_CO_123"}, nil
}

func TestCollectSuccess(t *testing.T) {
	l := newTestLedger("1000")
	gw := &fakeGateway{
		initiateFn: okInitiate,
		pollFn: func(ctx context.Context, checkoutID string) (PollResult, error) {
			return PollResult{State: GatewayStateSuccess, TransactionID: "TX9", Receipt: "QGH7TI61"}, nil
		},
	}
	c := NewCollectorWithClock(gw, &fakeClock{})

	p, err := c.Collect(context.Background(), l, "254700000001", "INV-000042")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if p.Method != enum.PaymentMethodMobileMoney {
		t.Errorf("method = %s, want mobile_money", p.Method)
	}
	if !p.Amount.Equal(dec("1000")) {
		t.Errorf("amount = %s, want 1000", p.Amount)
	}
	if p.Reference != "QGH7TI61" {
		t.Errorf("reference = %q, want gateway receipt", p.Reference)
	}
	if !l.Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", l.Remaining())
	}
}

func TestCollectChargesOutstandingBalance(t *testing.T) {
	l := newTestLedger("1000")
	if _, err := l.AddPayment(enum.PaymentMethodCash, dec("600"), ""); err != nil {
		t.Fatalf("cash payment: %v", err)
	}

	var initiated InitiateRequest
	gw := &fakeGateway{
		initiateFn: func(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
			initiated = req
			return InitiateResult{CheckoutID: "ws_CO_1"}, nil
		},
		pollFn: func(ctx context.Context, checkoutID string) (PollResult, error) {
			return PollResult{State: GatewayStateSuccess, TransactionID: "TX1"}, nil
		},
	}
	c := NewCollectorWithClock(gw, &fakeClock{})

	p, err := c.Collect(context.Background(), l, "254700000001", "INV-1")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !initiated.Amount.Equal(dec("400")) {
		t.Errorf("initiated amount = %s, want 400", initiated.Amount)
	}
	if !p.Amount.Equal(dec("400")) {
		t.Errorf("recorded amount = %s, want 400", p.Amount)
	}
	if p.Reference != "TX1" {
		t.Errorf("reference = %q, want transaction id fallback", p.Reference)
	}
}

func TestCollectTimeout(t *testing.T) {
	l := newTestLedger("1000")
	gw := &fakeGateway{
		initiateFn: okInitiate,
		pollFn: func(ctx context.Context, checkoutID string) (PollResult, error) {
			return PollResult{State: GatewayStatePending}, nil
		},
	}
	clock := &fakeClock{}
	c := NewCollectorWithClock(gw, clock)

	_, err := c.Collect(context.Background(), l, "254700000001", "INV-1")
	if !errors.Is(err, ErrGatewayTimeout) {
		t.Fatalf("err = %v, want ErrGatewayTimeout", err)
	}
	// 60s budget at a 3s interval allows exactly 20 polls.
	if gw.polls != 20 {
		t.Errorf("polls = %d, want 20", gw.polls)
	}
	if len(l.Payments()) != 0 {
		t.Error("timed-out charge mutated the ledger")
	}
	if l.CanFinalize() {
		t.Error("CanFinalize() = true after timeout, want false")
	}
}

func TestCollectGatewayFailure(t *testing.T) {
	l := newTestLedger("1000")
	gw := &fakeGateway{
		initiateFn: okInitiate,
		pollFn: func(ctx context.Context, checkoutID string) (PollResult, error) {
			return PollResult{State: GatewayStateFailed, Message: "insufficient funds"}, nil
		},
	}
	c := NewCollectorWithClock(gw, &fakeClock{})

	_, err := c.Collect(context.Background(), l, "254700000001", "INV-1")
	if !errors.Is(err, ErrGatewayFailed) {
		t.Fatalf("err = %v, want ErrGatewayFailed", err)
	}
	if gw.polls != 1 {
		t.Errorf("polls = %d, want 1 (polling must stop on a terminal state)", gw.polls)
	}
	if len(l.Payments()) != 0 {
		t.Error("failed charge mutated the ledger")
	}
}

func TestCollectInitiateError(t *testing.T) {
	l := newTestLedger("1000")
	gw := &fakeGateway{
		initiateFn: func(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
			return InitiateResult{}, errors.New("connection refused")
		},
	}
	c := NewCollectorWithClock(gw, &fakeClock{})

	_, err := c.Collect(context.Background(), l, "254700000001", "INV-1")
	if !errors.Is(err, ErrGatewayFailed) {
		t.Fatalf("err = %v, want ErrGatewayFailed", err)
	}
	if gw.polls != 0 {
		t.Errorf("polls = %d, want 0", gw.polls)
	}
}

func TestCollectUserCancellation(t *testing.T) {
	l := newTestLedger("1000")
	ctx, cancel := context.WithCancel(context.Background())

	gw := &fakeGateway{initiateFn: okInitiate}
	// The operator abandons the charge after the second poll; the clock then
	// stops firing so cancellation is the only exit.
	gw.pollFn = func(pollCtx context.Context, checkoutID string) (PollResult, error) {
		if gw.polls == 2 {
			cancel()
		}
		return PollResult{State: GatewayStatePending}, nil
	}
	clock := &fakeClock{blockAfter: 2}
	c := NewCollectorWithClock(gw, clock)

	_, err := c.Collect(ctx, l, "254700000001", "INV-1")
	if !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("err = %v, want ErrUserCancelled", err)
	}
	// Cancellation is distinct from a gateway failure.
	if errors.Is(err, ErrGatewayFailed) {
		t.Error("cancellation must not read as a gateway failure")
	}
	if len(l.Payments()) != 0 {
		t.Error("cancelled charge mutated the ledger")
	}
}
