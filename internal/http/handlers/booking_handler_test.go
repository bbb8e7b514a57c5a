package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-turf-booking/internal/domain"
	"github.com/tbourn/go-turf-booking/internal/services"
)

// ---------- stubs ----------

type stubBookings struct {
	slots     map[string][]string
	orderErr  error
	gotAmount int64
	gotVerify services.VerifyRequest
	verifyErr error
}

func (s *stubBookings) BookedSlots(_ context.Context, raw string) (string, []string, error) {
	if raw == "" {
		return "", nil, services.Validation(services.ErrDateRequired)
	}
	return raw, s.slots[raw], nil
}

func (s *stubBookings) CreateOrder(_ context.Context, amount int64) (services.OrderResult, error) {
	s.gotAmount = amount
	if s.orderErr != nil {
		return services.OrderResult{}, s.orderErr
	}
	return services.OrderResult{OrderID: "order_1", Amount: amount, Currency: "INR", KeyID: "rzp_test_key"}, nil
}

func (s *stubBookings) VerifyAndSave(_ context.Context, req services.VerifyRequest) (services.Confirmation, error) {
	s.gotVerify = req
	if s.verifyErr != nil {
		return services.Confirmation{}, s.verifyErr
	}
	return services.Confirmation{DateKey: "2025-03-08", Slots: []string{"06 PM - 07 PM"}, Row: 2, DocumentLink: "/documents/d1"}, nil
}

type stubPricing struct {
	prices   map[string]decimal.Decimal
	gotDay   string
	gotPrice decimal.Decimal
}

func (s *stubPricing) Get(context.Context) (map[string]decimal.Decimal, error) { return s.prices, nil }

func (s *stubPricing) Update(_ context.Context, day string, price decimal.Decimal) error {
	if !strings.EqualFold(day, "monday") {
		return services.NotFound(services.ErrDayNotFound)
	}
	s.gotDay, s.gotPrice = day, price
	return nil
}

type stubReports struct {
	etag    string
	rows    []map[string]string
	calls   int
	dash    services.Dashboard
	dashErr error
}

func (s *stubReports) Registrations(_ context.Context, raw string) ([]map[string]string, error) {
	s.calls++
	if raw == "" {
		return nil, services.Validation(services.ErrDateRequired)
	}
	return s.rows, nil
}

func (s *stubReports) ETag(context.Context) (string, error) { return s.etag, nil }

func (s *stubReports) DashboardStats(context.Context) (services.Dashboard, error) {
	return s.dash, s.dashErr
}

type stubDocs struct{}

func (stubDocs) Get(_ context.Context, id string) (*domain.Document, error) {
	if id != "d1" {
		return nil, services.NotFound(services.ErrDocumentNotFound)
	}
	return &domain.Document{ID: "d1", Name: "id card.png", ContentType: "image/png", Data: []byte("png")}, nil
}

// ---------- harness ----------

type harness struct {
	r        *gin.Engine
	bookings *stubBookings
	pricing  *stubPricing
	reports  *stubReports
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hs := &harness{
		bookings: &stubBookings{slots: map[string][]string{"2025-03-08": {"06 PM - 07 PM", "07 PM - 08 PM"}}},
		pricing:  &stubPricing{prices: map[string]decimal.Decimal{"monday": decimal.NewFromInt(1000), "sunday": decimal.RequireFromString("1250.50")}},
		reports:  &stubReports{etag: `W/"ledger-3-1700000000"`, rows: []map[string]string{{"Name": "Asha"}}},
	}
	h := New(hs.bookings, hs.pricing, hs.reports, stubDocs{}, "2.1.0")
	h.now = func() time.Time { return time.Date(2025, 3, 8, 11, 30, 0, 0, time.UTC) }

	r := gin.New()
	r.GET("/read", h.Read)
	r.POST("/write", h.Write)
	r.GET("/documents/:id", h.GetDocument)
	hs.r = r
	return hs
}

func (hs *harness) get(t *testing.T, target string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	return hs.do(t, req)
}

func (hs *harness) post(t *testing.T, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/write", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return hs.do(t, req)
}

func (hs *harness) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v (%s)", err, w.Body.String())
		}
	}
	return w, body
}

// ---------- read verb ----------

func TestRead_VersionAndAvailability(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.get(t, "/read?check=version")
	if w.Code != http.StatusOK || body["status"] != "success" || body["version"] != "2.1.0" || body["time"] != "2025-03-08T11:30:00Z" {
		t.Fatalf("version: %d %v", w.Code, body)
	}

	w, body = hs.get(t, "/read?date=2025-03-08")
	slots, _ := body["bookedSlots"].([]any)
	if w.Code != http.StatusOK || body["date"] != "2025-03-08" || len(slots) != 2 || slots[0] != "06 PM - 07 PM" {
		t.Fatalf("availability: %d %v", w.Code, body)
	}

	// an unbooked date yields an empty list, never null
	w, body = hs.get(t, "/read?date=2025-03-09")
	if slots, ok := body["bookedSlots"].([]any); w.Code != http.StatusOK || !ok || len(slots) != 0 {
		t.Fatalf("empty availability: %d %v", w.Code, body)
	}

	w, body = hs.get(t, "/read")
	if w.Code != http.StatusBadRequest || body["status"] != "error" || body["message"] != "Date required" {
		t.Fatalf("missing date: %d %v", w.Code, body)
	}

	w, body = hs.get(t, "/read?action=bogus")
	if w.Code != http.StatusBadRequest || body["code"] != ErrCodeUnknownAction {
		t.Fatalf("unknown action: %d %v", w.Code, body)
	}
}

func TestRead_FetchPricing(t *testing.T) {
	hs := newHarness(t)

	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read?action=fetchpricing", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	// prices are emitted as JSON numbers
	if !strings.Contains(w.Body.String(), `"monday":1000`) || !strings.Contains(w.Body.String(), `"sunday":1250.5`) {
		t.Fatalf("unexpected pricing body: %s", w.Body.String())
	}
}

func TestRead_FetchRegistrations_ETag(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.get(t, "/read?action=fetchregistrations&date=2025-03-08")
	rows, _ := body["registrations"].([]any)
	if w.Code != http.StatusOK || len(rows) != 1 {
		t.Fatalf("registrations: %d %v", w.Code, body)
	}
	etag := w.Header().Get("ETag")
	if etag != hs.reports.etag {
		t.Fatalf("ETag = %q", etag)
	}

	w, _ = hs.get(t, "/read?action=fetchregistrations&date=2025-03-08", "If-None-Match", etag)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("conditional GET: %d %q", w.Code, w.Body.String())
	}
	if hs.reports.calls != 1 {
		t.Fatalf("registrations recomputed on 304: calls=%d", hs.reports.calls)
	}

	w, body = hs.get(t, "/read?action=fetchregistrations")
	if w.Code != http.StatusBadRequest || body["message"] != "Date required" {
		t.Fatalf("missing date: %d %v", w.Code, body)
	}
}

func TestRead_FetchDashboard(t *testing.T) {
	hs := newHarness(t)
	hs.reports.dash = services.Dashboard{
		Date: "2025-03-08", TodayBookings: 2, TodayRevenue: decimal.NewFromInt(500),
		CompletedSlots: 1, RemainingSlots: 12,
	}

	w, body := hs.get(t, "/read?action=fetchdashboardstats")
	stats, _ := body["stats"].(map[string]any)
	if w.Code != http.StatusOK || stats["todayBookings"] != float64(2) || stats["todayRevenue"] != float64(500) ||
		stats["completedSlots"] != float64(1) || stats["remainingSlots"] != float64(12) {
		t.Fatalf("dashboard: %d %v", w.Code, body)
	}

	hs.reports.dashErr = services.Storage("read ledger", errors.New("db down"))
	w, body = hs.get(t, "/read?action=fetchdashboardstats")
	if w.Code != http.StatusServiceUnavailable || body["code"] != ErrCodeStorage {
		t.Fatalf("dashboard failure: %d %v", w.Code, body)
	}
}

// ---------- write verb ----------

func TestWrite_CreateOrder(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.post(t, `{"action":"createOrder","amount":"50000"}`)
	if w.Code != http.StatusOK || body["orderId"] != "order_1" || body["gatewayPublicKey"] != "rzp_test_key" || body["currency"] != "INR" {
		t.Fatalf("createOrder: %d %v", w.Code, body)
	}
	if hs.bookings.gotAmount != 50000 {
		t.Fatalf("amount = %d", hs.bookings.gotAmount)
	}

	if _, _ = hs.post(t, `{"action":"createOrder","amount":750.0}`); hs.bookings.gotAmount != 750 {
		t.Fatalf("whole decimal amount = %d", hs.bookings.gotAmount)
	}

	w, body = hs.post(t, `{"action":"createOrder"}`)
	if w.Code != http.StatusBadRequest || body["message"] != "Amount missing" {
		t.Fatalf("missing amount: %d %v", w.Code, body)
	}

	hs.bookings.orderErr = services.Upstream("Payment gateway error: amount too small", errors.New("400"))
	w, body = hs.post(t, `{"action":"createOrder","amount":1}`)
	if w.Code != http.StatusBadGateway || body["message"] != "Payment gateway error: amount too small" {
		t.Fatalf("upstream: %d %v", w.Code, body)
	}
}

func TestWrite_CreateOrderRejectsInexactAmounts(t *testing.T) {
	hs := newHarness(t)
	for _, amount := range []string{
		`750.9`,
		`"0.5"`,
		`9223372036854775808`,
		`"99999999999999999999999"`,
		`0`,
		`-100`,
		`"1e400"`,
	} {
		hs.bookings.gotAmount = 0
		w, body := hs.post(t, `{"action":"createOrder","amount":`+amount+`}`)
		if w.Code != http.StatusBadRequest || body["message"] != services.ErrInvalidAmount.Error() {
			t.Fatalf("amount %s: %d %v", amount, w.Code, body)
		}
		if hs.bookings.gotAmount != 0 {
			t.Fatalf("amount %s reached the gateway as %d", amount, hs.bookings.gotAmount)
		}
	}

	w, _ := hs.post(t, `{"action":"createOrder","amount":9223372036854775807}`)
	if w.Code != http.StatusOK || hs.bookings.gotAmount != math.MaxInt64 {
		t.Fatalf("max amount: %d %d", w.Code, hs.bookings.gotAmount)
	}
}

func TestWrite_VerifyAndSave(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.post(t, `{
		"action":"verifyAndSave",
		"razorpay_order_id":"order_1",
		"razorpay_payment_id":"pay_1",
		"razorpay_signature":"sig",
		"bookingData":{"Date":"2025-03-08","Time Slots":"06 PM - 07 PM","Name":"Asha","Age":27},
		"photoIdData":"data:image/png;base64,AAAA",
		"photoIdName":"id.png"
	}`)
	if w.Code != http.StatusOK || body["message"] != "Confirmed!" || body["documentLink"] != "/documents/d1" {
		t.Fatalf("verifyAndSave: %d %v", w.Code, body)
	}
	got := hs.bookings.gotVerify
	if got.OrderID != "order_1" || got.PaymentID != "pay_1" || got.Signature != "sig" ||
		got.DocumentPayload != "data:image/png;base64,AAAA" || got.DocumentName != "id.png" {
		t.Fatalf("aliases not mapped: %+v", got)
	}
	if got.Booking["Age"] != float64(27) {
		t.Fatalf("booking data not passed through: %v", got.Booking)
	}

	// canonical names win over aliases
	_, _ = hs.post(t, `{"action":"verifyAndSave","orderId":"o2","razorpay_order_id":"o3","paymentId":"p2","signature":"s2","bookingData":{"Date":"2025-03-08"}}`)
	if hs.bookings.gotVerify.OrderID != "o2" {
		t.Fatalf("orderId precedence: %+v", hs.bookings.gotVerify)
	}

	hs.bookings.verifyErr = services.Conflict([]string{"06 PM - 07 PM"})
	w, body = hs.post(t, `{"action":"verifyAndSave","orderId":"o","paymentId":"p","signature":"s","bookingData":{"Date":"2025-03-08"}}`)
	conflicts, _ := body["conflicts"].([]any)
	if w.Code != http.StatusConflict || body["message"] != "Double booked!" || len(conflicts) != 1 {
		t.Fatalf("conflict: %d %v", w.Code, body)
	}

	hs.bookings.verifyErr = services.Verification(services.ErrSignatureMismatch)
	w, body = hs.post(t, `{"action":"verifyAndSave","orderId":"o","paymentId":"p","signature":"bad","bookingData":{"Date":"2025-03-08"}}`)
	if w.Code != http.StatusUnauthorized || body["message"] != "Verification failed" {
		t.Fatalf("verification: %d %v", w.Code, body)
	}
}

func TestWrite_UpdatePricing(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.post(t, `{"action":"updatePricing","day":"Monday","price":1200}`)
	if w.Code != http.StatusOK || body["day"] != "Monday" || body["price"] != float64(1200) {
		t.Fatalf("update numeric: %d %v", w.Code, body)
	}
	if !hs.pricing.gotPrice.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("price = %s", hs.pricing.gotPrice)
	}

	w, _ = hs.post(t, `{"action":"updatePricing","day":"monday","price":"999.50"}`)
	if w.Code != http.StatusOK || !hs.pricing.gotPrice.Equal(decimal.RequireFromString("999.5")) {
		t.Fatalf("update string: %d price=%s", w.Code, hs.pricing.gotPrice)
	}

	for _, bad := range []string{
		`{"action":"updatePricing","day":"Monday"}`,
		`{"action":"updatePricing","day":"Monday","price":-1}`,
		`{"action":"updatePricing","day":"Monday","price":"abc"}`,
		`{"action":"updatePricing","day":"Monday","price":null}`,
	} {
		if w, body := hs.post(t, bad); w.Code != http.StatusBadRequest || body["code"] != ErrCodeValidation {
			t.Fatalf("%s: %d %v", bad, w.Code, body)
		}
	}

	w, body = hs.post(t, `{"action":"updatePricing","day":"Funday","price":1}`)
	if w.Code != http.StatusNotFound || body["code"] != ErrCodeNotFound {
		t.Fatalf("unknown day: %d %v", w.Code, body)
	}
}

func TestWrite_BadBodies(t *testing.T) {
	hs := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/write", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	w, body := hs.do(t, req)
	if w.Code != http.StatusBadRequest || body["message"] != "No data received in post body" {
		t.Fatalf("empty body: %d %v", w.Code, body)
	}

	w, body = hs.post(t, `{"action":`)
	if w.Code != http.StatusBadRequest || body["code"] != ErrCodeBadRequest {
		t.Fatalf("malformed: %d %v", w.Code, body)
	}

	w, body = hs.post(t, `{"action":"dropTables"}`)
	if w.Code != http.StatusBadRequest || body["message"] != "Invalid action" {
		t.Fatalf("unknown action: %d %v", w.Code, body)
	}
}

func TestWrite_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(&stubBookings{}, &stubPricing{}, &stubReports{}, stubDocs{}, "test")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	})
	r.POST("/write", h.Write)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/write", strings.NewReader(`{"action":"createOrder","amount":"1000000000"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge || !strings.Contains(w.Body.String(), ErrCodePayloadTooLarge) {
		t.Fatalf("too large: %d %s", w.Code, w.Body.String())
	}
}

// ---------- documents ----------

func TestGetDocument(t *testing.T) {
	hs := newHarness(t)

	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/d1", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" || w.Body.String() != "png" {
		t.Fatalf("document: %d %q %q", w.Code, w.Header().Get("Content-Type"), w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") || !strings.Contains(cd, "id card.png") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	w, body := hs.get(t, "/documents/nope")
	if w.Code != http.StatusNotFound || body["message"] != "document not found" {
		t.Fatalf("missing document: %d %v", w.Code, body)
	}
}
