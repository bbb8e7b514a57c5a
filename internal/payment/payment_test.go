package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutate returns every string that differs from s in exactly one byte.
func mutate(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		b := []byte(s)
		if b[i] == 'x' {
			b[i] = 'y'
		} else {
			b[i] = 'x'
		}
		out = append(out, string(b))
	}
	return out
}

func TestVerifier_KnownVector(t *testing.T) {
	v := NewVerifier("secret")
	sig := v.Sign("order_1", "pay_1")
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", sig)
	assert.NoError(t, v.Verify("order_1", "pay_1", sig))
}

func TestVerifier_RejectsSingleCharMutations(t *testing.T) {
	v := NewVerifier("s3cr3t")
	order, pay := "order_NXa12bc", "pay_Q9zz81"
	sig := v.Sign(order, pay)

	for _, m := range mutate(order) {
		assert.ErrorIs(t, v.Verify(m, pay, sig), ErrSignatureMismatch, m)
	}
	for _, m := range mutate(pay) {
		assert.ErrorIs(t, v.Verify(order, m, sig), ErrSignatureMismatch, m)
	}
	for _, m := range mutate(sig) {
		assert.ErrorIs(t, v.Verify(order, pay, m), ErrSignatureMismatch, m)
	}
}

func TestVerifier_FailsClosed(t *testing.T) {
	v := NewVerifier("s")
	sig := v.Sign("o", "p")
	assert.ErrorIs(t, v.Verify("", "p", sig), ErrMissingField)
	assert.ErrorIs(t, v.Verify("o", " ", sig), ErrMissingField)
	assert.ErrorIs(t, v.Verify("o", "p", ""), ErrMissingField)
	assert.ErrorIs(t, v.Verify("o", "p", upperHex(sig)), ErrSignatureMismatch)

	assert.ErrorIs(t, NewVerifier("").Verify("o", "p", sig), ErrNoSecret)
}

// upperHex upper-cases the hex digest; only lowercase is accepted.
func upperHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestCreateOrder_Success(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_123", "amount": got.Amount, "currency": got.Currency, "receipt": got.Receipt, "status": "created",
		})
	}))
	defer srv.Close()

	now := time.UnixMilli(1714550400000)
	c := NewClient(ClientOptions{BaseURL: srv.URL + "/", KeyID: "rzp_test_key", KeySecret: "rzp_secret", Now: func() time.Time { return now }})
	o, err := c.CreateOrder(context.Background(), 50000, "INR")
	require.NoError(t, err)
	assert.Equal(t, "order_123", o.ID)
	assert.Equal(t, int64(50000), o.Amount)
	assert.Equal(t, "INR", o.Currency)
	assert.Equal(t, "turf_1714550400000", got.Receipt)
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestCreateOrder_InvalidAmountSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	for _, amt := range []int64{0, -5} {
		_, err := c.CreateOrder(context.Background(), amt, "INR")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.False(t, called)
}

func TestCreateOrder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be at least INR 1.00"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: srv.URL}).CreateOrder(context.Background(), 1, "INR")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", ue.Code)
	assert.Equal(t, "The amount must be at least INR 1.00", ue.Description)
}

func TestCreateOrder_UpstreamErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: srv.URL}).CreateOrder(context.Background(), 100, "INR")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Unknown", ue.Description)
}

func TestCreateOrder_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: url, Timeout: time.Second}).CreateOrder(context.Background(), 100, "INR")
	require.Error(t, err)
	var ue *UpstreamError
	assert.False(t, errors.As(err, &ue))
}
