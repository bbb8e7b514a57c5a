package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Razorpay REST endpoint.
const DefaultBaseURL = "https://api.razorpay.com"

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("payment: amount must be a positive integer")

// Order is a gateway-issued payment order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// UpstreamError is a non-success answer from the gateway.
type UpstreamError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Description)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Now stamps receipts; defaults to time.Now.
	Now func() time.Time
}

// Client creates orders through the Razorpay Orders API.
type Client struct {
	base   string
	keyID  string
	secret string
	http   *http.Client
	now    func() time.Time
}

// NewClient returns a Client. Missing options fall back to defaults.
func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{base: base, keyID: opts.KeyID, secret: opts.KeySecret, http: hc, now: now}
}

// KeyID returns the public key id the browser checkout needs.
func (c *Client) KeyID() string { return c.keyID }

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates an order for amount minor units. It is not retried.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidAmount
	}
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  "turf_" + strconv.FormatInt(c.now().UnixMilli(), 10),
	})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := &UpstreamError{StatusCode: resp.StatusCode, Description: "Unknown"}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Description != "" {
			ue.Code = eb.Error.Code
			ue.Description = eb.Error.Description
		}
		return Order{}, ue
	}

	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, fmt.Errorf("decode order: %w", err)
	}
	if o.ID == "" {
		return Order{}, &UpstreamError{StatusCode: resp.StatusCode, Description: "order id missing in response"}
	}
	return o, nil
}
