package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/dukapos/dukapos-api/internal/domain/checkout"
	"github.com/dukapos/dukapos-api/internal/domain/entity"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	// Daraja reports this errorCode while an STK push is still on the
	// customer's phone.
	pendingErrorCode = "500.001.1001"
	// ResultCode for a push the customer dismissed.
	cancelledResultCode = "1032"
)

// Provider builds per-tenant Daraja gateways. Tokens are fetched lazily via
// the client-credentials flow and cached by the oauth2 transport.
type Provider struct {
	// CallbackURL receives asynchronous STK push results. The engine polls
	// for status regardless, but Daraja requires the field.
	CallbackURL string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewProvider creates a Daraja gateway provider.
func NewProvider(callbackURL string) *Provider {
	return &Provider{CallbackURL: callbackURL}
}

// GatewayFor returns a gateway bound to one tenant's M-Pesa credentials.
func (p *Provider) GatewayFor(cfg *entity.MpesaIntegration) (checkout.Gateway, error) {
	if cfg == nil {
		return nil, errors.New("mpesa: no configuration")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.ShortCode == "" || cfg.PassKey == "" {
		return nil, errors.New("mpesa: incomplete configuration")
	}

	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ConsumerKey,
		ClientSecret: cfg.ConsumerSecret,
		TokenURL:     baseURL + "/oauth/v1/generate?grant_type=client_credentials",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx := context.Background()
	if p.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}

	return &gateway{
		baseURL:     baseURL,
		shortCode:   cfg.ShortCode,
		passKey:     cfg.PassKey,
		callbackURL: p.CallbackURL,
		httpClient:  creds.Client(ctx),
	}, nil
}

type gateway struct {
	baseURL     string
	shortCode   string
	passKey     string
	callbackURL string
	httpClient  *http.Client
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResultCode        string `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	MpesaReceipt      string `json:"MpesaReceiptNumber"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
}

// Initiate pushes an STK prompt to the customer's phone. Daraja only takes
// whole shillings, so the amount is rounded up; the engine charges exactly
// what the ledger owes, which is already a two-decimal value.
func (g *gateway) Initiate(ctx context.Context, req checkout.InitiateRequest) (checkout.InitiateResult, error) {
	password, timestamp := g.credentials(time.Now())

	body := stkPushRequest{
		BusinessShortCode: g.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            req.Phone,
		PartyB:            g.shortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       g.callbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   "Sale " + req.Reference,
	}

	var resp stkPushResponse
	if err := g.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		return checkout.InitiateResult{}, err
	}

	if resp.ResponseCode != "0" {
		msg := resp.ResponseDescription
		if msg == "" {
			msg = resp.ErrorMessage
		}
		return checkout.InitiateResult{}, fmt.Errorf("mpesa: stk push rejected: %s", msg)
	}

	return checkout.InitiateResult{CheckoutID: resp.CheckoutRequestID}, nil
}

// PollStatus queries the state of an in-flight STK push.
func (g *gateway) PollStatus(ctx context.Context, checkoutID string) (checkout.PollResult, error) {
	password, timestamp := g.credentials(time.Now())

	body := stkQueryRequest{
		BusinessShortCode: g.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutID,
	}

	var resp stkQueryResponse
	if err := g.post(ctx, "/mpesa/stkpushquery/v1/query", body, &resp); err != nil {
		return checkout.PollResult{}, err
	}

	// A query against a still-processing push comes back as an error
	// payload rather than a result.
	if resp.ErrorCode == pendingErrorCode {
		return checkout.PollResult{State: checkout.GatewayStatePending}, nil
	}
	if resp.ErrorCode != "" {
		return checkout.PollResult{}, fmt.Errorf("mpesa: query failed: %s", resp.ErrorMessage)
	}

	switch resp.ResultCode {
	case "0":
		return checkout.PollResult{
			State:         checkout.GatewayStateSuccess,
			TransactionID: resp.CheckoutRequestID,
			Receipt:       resp.MpesaReceipt,
			Message:       resp.ResultDesc,
		}, nil
	case cancelledResultCode:
		return checkout.PollResult{
			State:   checkout.GatewayStateFailed,
			Message: "Request cancelled by user",
		}, nil
	default:
		return checkout.PollResult{
			State:   checkout.GatewayStateFailed,
			Message: resp.ResultDesc,
		}, nil
	}
}

// credentials derives the Daraja API password for a request timestamp.
func (g *gateway) credentials(now time.Time) (password, timestamp string) {
	timestamp = now.Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(g.shortCode + g.passKey + timestamp))
	return password, timestamp
}

func (g *gateway) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	return json.NewDecoder(httpResp.Body).Decode(out)
}
