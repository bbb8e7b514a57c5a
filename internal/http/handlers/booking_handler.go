// Booking HTTP handlers.
//
// The booking API exposes two verbs, each multiplexing several operations:
//   - GET  {base}/read   (availability, version, pricing, registrations, dashboard)
//   - POST {base}/write  (createOrder, verifyAndSave, updatePricing)
//
// Handlers are transport-thin: they decode input, call application services,
// and translate results into the status envelope (including conditional
// responses for registrations).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-turf-booking/internal/domain"
	"github.com/tbourn/go-turf-booking/internal/http/middleware"
	"github.com/tbourn/go-turf-booking/internal/services"
	"github.com/tbourn/go-turf-booking/internal/sysutil"
)

//
// Service contracts (context-aware)
//

// BookingService covers availability, orders and the verified commit.
type BookingService interface {
	// BookedSlots returns the normalized date and its taken slots.
	BookedSlots(ctx context.Context, rawDate string) (string, []string, error)
	// CreateOrder opens a payment order for amount minor units.
	CreateOrder(ctx context.Context, amount int64) (services.OrderResult, error)
	// VerifyAndSave authenticates a payment callback and commits the booking.
	VerifyAndSave(ctx context.Context, req services.VerifyRequest) (services.Confirmation, error)
}

// PricingService reads and updates the day -> price table.
type PricingService interface {
	Get(ctx context.Context) (map[string]decimal.Decimal, error)
	Update(ctx context.Context, day string, price decimal.Decimal) error
}

// ReportService derives registrations and dashboard figures.
type ReportService interface {
	Registrations(ctx context.Context, rawDate string) ([]map[string]string, error)
	// ETag fingerprints the ledger; "" disables conditional responses.
	ETag(ctx context.Context) (string, error)
	DashboardStats(ctx context.Context) (services.Dashboard, error)
}

// DocumentService serves uploaded documents.
type DocumentService interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
}

//
// Handler wiring
//

// Handlers groups the booking endpoints.
type Handlers struct {
	bookings BookingService
	pricing  PricingService
	reports  ReportService
	docs     DocumentService
	version  string
	now      func() time.Time
}

// New constructs Handlers bound to the given services. version is reported
// by check=version.
func New(bookings BookingService, pricing PricingService, reports ReportService, docs DocumentService, version string) *Handlers {
	return &Handlers{
		bookings: bookings,
		pricing:  pricing,
		reports:  reports,
		docs:     docs,
		version:  version,
		now:      time.Now,
	}
}

// Action names. They double as the metrics "action" label, so the set is closed.
const (
	actionVersion            = "version"
	actionAvailability       = "availability"
	actionFetchPricing       = "fetchpricing"
	actionFetchRegistrations = "fetchregistrations"
	actionFetchDashboard     = "fetchdashboardstats"
	actionCreateOrder        = "createOrder"
	actionVerifyAndSave      = "verifyAndSave"
	actionUpdatePricing      = "updatePricing"
	actionUnknown            = "unknown"
)

//
// DTOs
//

// WriteRequest is the JSON body of the write verb. Action selects which of
// the remaining fields are read. The razorpay_* and photoId* spellings are
// accepted as aliases of the checkout callback fields.
type WriteRequest struct {
	Action string `json:"action" example:"verifyAndSave"`

	// createOrder: amount in minor units (number or numeric string)
	Amount json.Number `json:"amount,omitempty" swaggertype:"string" example:"50000"`

	// verifyAndSave
	OrderID           string         `json:"orderId,omitempty" example:"order_Nx1"`
	PaymentID         string         `json:"paymentId,omitempty" example:"pay_Nx1"`
	Signature         string         `json:"signature,omitempty"`
	RazorpayOrderID   string         `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string         `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string         `json:"razorpay_signature,omitempty"`
	BookingData       map[string]any `json:"bookingData,omitempty"`
	DocumentPayload   string         `json:"documentPayload,omitempty"`
	DocumentName      string         `json:"documentName,omitempty"`
	PhotoIDData       string         `json:"photoIdData,omitempty"`
	PhotoIDName       string         `json:"photoIdName,omitempty"`

	// updatePricing: price as a JSON number or numeric string
	Day   string          `json:"day,omitempty" example:"Monday"`
	Price json.RawMessage `json:"price,omitempty" swaggertype:"string" example:"1200"`
}

// DashboardResponse is today's booking summary.
type DashboardResponse struct {
	Date           string      `json:"date" example:"2025-03-08"`
	TodayBookings  int         `json:"todayBookings" example:"4"`
	TodayRevenue   json.Number `json:"todayRevenue" swaggertype:"number" example:"2000"`
	CompletedSlots int         `json:"completedSlots" example:"3"`
	RemainingSlots int         `json:"remainingSlots" example:"9"`
}

//
// Handlers
//

// Read godoc
// @ID          read
// @Summary     Read verb
// @Description check=version returns the build marker. action=fetchpricing, fetchregistrations (with date, weak ETag) and fetchdashboardstats return reports. Without action, date returns the taken slots of that date.
// @Tags        Booking
// @Produce     json
//
// @Param       check          query   string  false "version"
// @Param       action         query   string  false "fetchpricing | fetchregistrations | fetchdashboardstats"
// @Param       date           query   string  false "Booking date"  example(2025-03-08)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches (registrations)"
//
// @Success     200  {object}  map[string]interface{}
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Validation error"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /read [get]
func (h *Handlers) Read(c *gin.Context) {
	if c.Query("check") == "version" {
		middleware.SetAction(c, actionVersion)
		ok(c, http.StatusOK, gin.H{
			"version": h.version,
			"time":    h.now().UTC().Format(time.RFC3339),
		})
		return
	}

	switch action := strings.TrimSpace(c.Query("action")); action {
	case "":
		h.bookedSlots(c)
	case actionFetchPricing:
		h.fetchPricing(c)
	case actionFetchRegistrations:
		h.fetchRegistrations(c)
	case actionFetchDashboard:
		h.fetchDashboard(c)
	default:
		middleware.SetAction(c, actionUnknown)
		failErr(c, services.Validation(services.ErrUnknownAction))
	}
}

func (h *Handlers) bookedSlots(c *gin.Context) {
	middleware.SetAction(c, actionAvailability)
	date, taken, err := h.bookings.BookedSlots(c.Request.Context(), c.Query("date"))
	if err != nil {
		failErr(c, err)
		return
	}
	if taken == nil {
		taken = []string{}
	}
	ok(c, http.StatusOK, gin.H{"date": date, "bookedSlots": taken})
}

func (h *Handlers) fetchPricing(c *gin.Context) {
	middleware.SetAction(c, actionFetchPricing)
	prices, err := h.pricing.Get(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	out := make(map[string]json.Number, len(prices))
	for day, p := range prices {
		out[day] = json.Number(p.String())
	}
	ok(c, http.StatusOK, gin.H{"pricing": out})
}

func (h *Handlers) fetchRegistrations(c *gin.Context) {
	middleware.SetAction(c, actionFetchRegistrations)
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if etag, err := h.reports.ETag(ctx); err == nil && etag != "" {
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	rows, err := h.reports.Registrations(ctx, c.Query("date"))
	if err != nil {
		failErr(c, err)
		return
	}
	if rows == nil {
		rows = []map[string]string{}
	}
	ok(c, http.StatusOK, gin.H{"registrations": rows})
}

func (h *Handlers) fetchDashboard(c *gin.Context) {
	middleware.SetAction(c, actionFetchDashboard)
	d, err := h.reports.DashboardStats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": DashboardResponse{
		Date:           d.Date,
		TodayBookings:  d.TodayBookings,
		TodayRevenue:   json.Number(d.TodayRevenue.String()),
		CompletedSlots: d.CompletedSlots,
		RemainingSlots: d.RemainingSlots,
	}})
}

// Write godoc
// @ID          write
// @Summary     Write verb
// @Description action=createOrder opens a payment order. action=verifyAndSave verifies the payment signature and commits the booking. action=updatePricing sets one day's price.
// @Tags        Booking
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.WriteRequest  true  "Write payload"
//
// @Success     200  {object}  map[string]interface{}
// @Failure     400  {object}  handlers.ErrorResponse "Validation error"
// @Failure     401  {object}  handlers.ErrorResponse "Verification failed"
// @Failure     404  {object}  handlers.ErrorResponse "Day not found"
// @Failure     409  {object}  handlers.ErrorResponse "Slots already booked"
// @Failure     413  {object}  handlers.ErrorResponse "Payload too large"
// @Failure     502  {object}  handlers.ErrorResponse "Payment gateway error"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /write [post]
func (h *Handlers) Write(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SetAction(c, actionUnknown)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "No data received in post body")
		default:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		}
		return
	}

	switch strings.TrimSpace(req.Action) {
	case actionCreateOrder:
		h.createOrder(c, req)
	case actionVerifyAndSave:
		h.verifyAndSave(c, req)
	case actionUpdatePricing:
		h.updatePricing(c, req)
	default:
		middleware.SetAction(c, actionUnknown)
		failErr(c, services.Validation(services.ErrUnknownAction))
	}
}

func (h *Handlers) createOrder(c *gin.Context, req WriteRequest) {
	middleware.SetAction(c, actionCreateOrder)
	amount, err := parseAmount(req.Amount)
	if err != nil {
		failErr(c, err)
		return
	}
	o, err := h.bookings.CreateOrder(c.Request.Context(), amount)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"orderId":          o.OrderID,
		"amount":           o.Amount,
		"currency":         o.Currency,
		"gatewayPublicKey": o.KeyID,
	})
}

func (h *Handlers) verifyAndSave(c *gin.Context, req WriteRequest) {
	middleware.SetAction(c, actionVerifyAndSave)
	conf, err := h.bookings.VerifyAndSave(c.Request.Context(), services.VerifyRequest{
		OrderID:         sysutil.FirstNonEmpty(req.OrderID, req.RazorpayOrderID),
		PaymentID:       sysutil.FirstNonEmpty(req.PaymentID, req.RazorpayPaymentID),
		Signature:       sysutil.FirstNonEmpty(req.Signature, req.RazorpaySignature),
		Booking:         req.BookingData,
		DocumentPayload: sysutil.FirstNonEmpty(req.DocumentPayload, req.PhotoIDData),
		DocumentName:    sysutil.FirstNonEmpty(req.DocumentName, req.PhotoIDName),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"message":      "Confirmed!",
		"date":         conf.DateKey,
		"slots":        conf.Slots,
		"row":          conf.Row,
		"documentLink": conf.DocumentLink,
	})
}

func (h *Handlers) updatePricing(c *gin.Context, req WriteRequest) {
	middleware.SetAction(c, actionUpdatePricing)
	price, err := parsePriceField(req.Price)
	if err != nil {
		failErr(c, err)
		return
	}
	day := strings.TrimSpace(req.Day)
	if err := h.pricing.Update(c.Request.Context(), day, price); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Pricing updated", "day": day, "price": json.Number(price.String())})
}

//
// Helpers
//

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// parseAmount accepts a positive whole number of minor units. "500" and
// "500.0" are the same amount; "500.5" and anything past int64 are rejected.
func parseAmount(n json.Number) (int64, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, services.Validation(services.ErrAmountRequired)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() || d.Sign() <= 0 || d.GreaterThan(maxAmount) {
		return 0, services.Validation(services.ErrInvalidAmount)
	}
	return d.IntPart(), nil
}

// parsePriceField accepts a JSON number or a JSON string holding a number.
func parsePriceField(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Decimal{}, services.Validation(services.ErrInvalidPrice)
		}
		s = str
	}
	if s == "null" {
		s = ""
	}
	return services.ParsePrice(s)
}
