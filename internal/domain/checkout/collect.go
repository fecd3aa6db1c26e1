package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

const (
	// pollInterval is how often the gateway is polled for a terminal state.
	pollInterval = 3 * time.Second
	// pollBudget is the total time allowed before the collection times out.
	pollBudget = 60 * time.Second
)

// Terminal collection outcomes. ErrUserCancelled is a distinct outcome from
// ErrGatewayFailed: the operator abandoned the charge, the gateway did not
// reject it.
var (
	ErrGatewayFailed  = errors.New("mobile money charge failed")
	ErrGatewayTimeout = errors.New("mobile money charge timed out")
	ErrUserCancelled  = errors.New("mobile money charge cancelled")
)

// GatewayState is the charge status reported by the gateway.
type GatewayState int

const (
	GatewayStatePending GatewayState = iota
	GatewayStateSuccess
	GatewayStateFailed
)

// InitiateRequest asks the gateway to push a charge to the customer's phone.
type InitiateRequest struct {
	Amount    decimal.Decimal
	Phone     string
	Reference string
}

// InitiateResult identifies the in-flight charge for status polling.
type InitiateResult struct {
	CheckoutID string
}

// PollResult is one status observation for an in-flight charge.
type PollResult struct {
	State         GatewayState
	TransactionID string
	Receipt       string
	Message       string
}

// Gateway is the external mobile-money provider contract. The production
// implementation lives in internal/infrastructure/mpesa; tests use a fake.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	PollStatus(ctx context.Context, checkoutID string) (PollResult, error)
}

// Clock abstracts timer waits so the polling loop is testable without
// real sleeps.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Collector drives one mobile-money charge to a terminal outcome and records
// the payment on the ledger only on success.
type Collector struct {
	gateway Gateway
	clock   Clock
}

// NewCollector creates a collector using the real clock.
func NewCollector(gateway Gateway) *Collector {
	return &Collector{gateway: gateway, clock: systemClock{}}
}

// NewCollectorWithClock creates a collector with an injected clock.
func NewCollectorWithClock(gateway Gateway, clock Clock) *Collector {
	return &Collector{gateway: gateway, clock: clock}
}

// Collect initiates a charge for the ledger's outstanding balance and polls
// until the gateway reports a terminal state, the budget is exhausted, or
// ctx is cancelled.
//
// On success exactly one mobile_money payment for the amount owed is
// recorded (mobile money has no change concept, so the tendered amount is
// never used) and the remaining balance becomes zero. On every other outcome
// the ledger is left untouched.
func (c *Collector) Collect(ctx context.Context, ledger *Ledger, phone, reference string) (*Payment, error) {
	owed := ledger.Remaining()

	initiated, err := c.gateway.Initiate(ctx, InitiateRequest{
		Amount:    owed,
		Phone:     phone,
		Reference: reference,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrUserCancelled
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}

	for elapsed := time.Duration(0); elapsed < pollBudget; elapsed += pollInterval {
		select {
		case <-ctx.Done():
			return nil, ErrUserCancelled
		case <-c.clock.After(pollInterval):
		}

		status, err := c.gateway.PollStatus(ctx, initiated.CheckoutID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrUserCancelled
			}
			return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
		}

		switch status.State {
		case GatewayStateSuccess:
			ref := status.Receipt
			if ref == "" {
				ref = status.TransactionID
			}
			return ledger.append(enum.PaymentMethodMobileMoney, owed, ref), nil
		case GatewayStateFailed:
			return nil, fmt.Errorf("%w: %s", ErrGatewayFailed, status.Message)
		}
	}

	return nil, ErrGatewayTimeout
}
