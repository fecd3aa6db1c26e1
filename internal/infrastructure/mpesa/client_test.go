package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/checkout"
	"github.com/dukapos/dukapos-api/internal/domain/entity"
)

func testConfig() *entity.MpesaIntegration {
	return &entity.MpesaIntegration{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		Environment:    "sandbox",
	}
}

func TestGatewayForValidatesConfig(t *testing.T) {
	p := NewProvider("https://example.com/callback")

	if _, err := p.GatewayFor(nil); err == nil {
		t.Error("expected error for nil config")
	}

	incomplete := testConfig()
	incomplete.PassKey = ""
	if _, err := p.GatewayFor(incomplete); err == nil {
		t.Error("expected error for incomplete config")
	}

	gw, err := p.GatewayFor(testConfig())
	if err != nil {
		t.Fatalf("GatewayFor: %v", err)
	}
	if gw == nil {
		t.Fatal("expected a gateway")
	}
}

// testGateway binds a gateway to a local server, skipping the token flow.
func testGateway(server *httptest.Server) *gateway {
	return &gateway{
		baseURL:     server.URL,
		shortCode:   "174379",
		passKey:     "passkey",
		callbackURL: "https://example.com/callback",
		httpClient:  server.Client(),
	}
}

func TestInitiateSuccess(t *testing.T) {
	var got stkPushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mpesa/stkpush/v1/processrequest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(stkPushResponse{
			CheckoutRequestID: "ws_CO_12345",
			ResponseCode:      "0",
		})
	}))
	defer server.Close()

	g := testGateway(server)
	result, err := g.Initiate(context.Background(), checkout.InitiateRequest{
		Amount:    decimal.NewFromFloat(999.50),
		Phone:     "254712345678",
		Reference: "TST-abc12345",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if result.CheckoutID != "ws_CO_12345" {
		t.Errorf("expected checkout ID ws_CO_12345, got %s", result.CheckoutID)
	}

	// Daraja takes whole shillings only; fractional amounts round up.
	if got.Amount != 1000 {
		t.Errorf("expected amount 1000, got %d", got.Amount)
	}
	if got.PartyB != "174379" || got.BusinessShortCode != "174379" {
		t.Errorf("short code must be both PartyB and BusinessShortCode, got %s/%s", got.PartyB, got.BusinessShortCode)
	}
	if got.PhoneNumber != "254712345678" {
		t.Errorf("unexpected phone %s", got.PhoneNumber)
	}
	if got.CallBackURL != "https://example.com/callback" {
		t.Errorf("unexpected callback %s", got.CallBackURL)
	}
	if got.AccountReference != "TST-abc12345" {
		t.Errorf("unexpected reference %s", got.AccountReference)
	}
}

func TestInitiateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(stkPushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Invalid ShortCode",
		})
	}))
	defer server.Close()

	g := testGateway(server)
	_, err := g.Initiate(context.Background(), checkout.InitiateRequest{
		Amount: decimal.NewFromInt(100),
		Phone:  "254712345678",
	})
	if err == nil || !strings.Contains(err.Error(), "Invalid ShortCode") {
		t.Fatalf("expected rejection with description, got %v", err)
	}
}

func TestPollStatus(t *testing.T) {
	tests := []struct {
		name        string
		response    stkQueryResponse
		wantState   checkout.GatewayState
		wantReceipt string
		wantErr     bool
	}{
		{
			name:      "still on the phone",
			response:  stkQueryResponse{ErrorCode: "500.001.1001", ErrorMessage: "The transaction is being processed"},
			wantState: checkout.GatewayStatePending,
		},
		{
			name: "paid",
			response: stkQueryResponse{
				ResultCode:        "0",
				ResultDesc:        "The service request is processed successfully.",
				CheckoutRequestID: "ws_CO_12345",
				MpesaReceipt:      "QGR7TEST01",
			},
			wantState:   checkout.GatewayStateSuccess,
			wantReceipt: "QGR7TEST01",
		},
		{
			name:      "cancelled on the phone",
			response:  stkQueryResponse{ResultCode: "1032", ResultDesc: "Request cancelled by user"},
			wantState: checkout.GatewayStateFailed,
		},
		{
			name:      "insufficient funds",
			response:  stkQueryResponse{ResultCode: "1", ResultDesc: "The balance is insufficient"},
			wantState: checkout.GatewayStateFailed,
		},
		{
			name:     "query error",
			response: stkQueryResponse{ErrorCode: "404.001.03", ErrorMessage: "Invalid Access Token"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/mpesa/stkpushquery/v1/query" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			g := testGateway(server)
			result, err := g.PollStatus(context.Background(), "ws_CO_12345")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("PollStatus: %v", err)
			}
			if result.State != tt.wantState {
				t.Errorf("expected state %d, got %d", tt.wantState, result.State)
			}
			if tt.wantReceipt != "" && result.Receipt != tt.wantReceipt {
				t.Errorf("expected receipt %s, got %s", tt.wantReceipt, result.Receipt)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	g := &gateway{shortCode: "174379", passKey: "passkey"}
	now := time.Date(2026, 3, 15, 14, 30, 45, 0, time.UTC)

	password, timestamp := g.credentials(now)
	if timestamp != "20260315143045" {
		t.Errorf("unexpected timestamp %s", timestamp)
	}
	want := base64.StdEncoding.EncodeToString([]byte("174379passkey20260315143045"))
	if password != want {
		t.Errorf("unexpected password %s", password)
	}
}
