// Package services – BookingService
//
// BookingService owns the reservation flow: availability queries over the
// Availability Cache, payment order creation, and the verified commit that
// turns a paid callback into one ledger row.
//
// The commit holds the per-date lock from the conflict check until the
// cache merge, so two requests for the same date never interleave between
// reading the taken slots and recording new ones. The ledger is the source
// of truth: the payment is claimed, the row written, and only then is the
// cache merged. A failed merge drops the entry so the next read rebuilds it
// from the ledger.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/availability"
	"github.com/tbourn/go-turf-booking/internal/datekey"
	"github.com/tbourn/go-turf-booking/internal/events"
	"github.com/tbourn/go-turf-booking/internal/ledger"
	"github.com/tbourn/go-turf-booking/internal/payment"
	"github.com/tbourn/go-turf-booking/internal/repo"
	"github.com/tbourn/go-turf-booking/internal/slots"
)

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (payment.Order, error)
	KeyID() string
}

// SignatureVerifier authenticates gateway callbacks.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) error
}

// DocumentUploader stores an uploaded document and returns its public link.
type DocumentUploader interface {
	Upload(ctx context.Context, payload, name string) (string, error)
}

// OrderResult is what the browser checkout needs to open the gateway.
type OrderResult struct {
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
}

// VerifyRequest is a gateway callback plus the submitted booking form.
type VerifyRequest struct {
	OrderID         string
	PaymentID       string
	Signature       string
	Booking         map[string]any
	DocumentPayload string
	DocumentName    string
}

// Confirmation describes a committed booking.
type Confirmation struct {
	DateKey      string
	Slots        []string
	Row          int
	DocumentLink string
}

// BookingService coordinates availability, orders and commits.
type BookingService struct {
	DB        *gorm.DB
	Sheet     ledger.Sheet
	Layout    ledger.Layout
	Cache     *availability.Cache
	Locker    availability.Locker
	Mapper    *ledger.Mapper
	Writer    *ledger.Writer
	Verifier  SignatureVerifier
	Gateway   Gateway
	Documents DocumentUploader
	Events    events.Publisher

	Currency string
	// DateField and SlotField name the booking form fields holding the date
	// and the comma-joined slots. When absent, the first label containing
	// "date" or "slot" is used.
	DateField string
	SlotField string
	// PaymentStatus is written to the payment status column.
	PaymentStatus string

	Location    *time.Location
	Now         func() time.Time
	LockTimeout time.Duration
}

func (s *BookingService) tracer() trace.Tracer { return otel.Tracer("services/BookingService") }

func (s *BookingService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *BookingService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// NormalizeDate turns raw input into a Date Key or a validation error.
func (s *BookingService) NormalizeDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", Validation(ErrDateRequired)
	}
	key, err := datekey.NormalizeString(raw, s.loc())
	if err != nil {
		return "", &Error{Kind: KindValidation, Message: ErrInvalidDate.Error(), Err: err}
	}
	return key, nil
}

// BookedSlots returns the taken slots of a date, rebuilding the cache entry
// from the ledger on a miss.
func (s *BookingService) BookedSlots(ctx context.Context, rawDate string) (string, []string, error) {
	ctx, span := s.tracer().Start(ctx, "BookedSlots")
	defer span.End()

	key, err := s.NormalizeDate(rawDate)
	if err != nil {
		return "", nil, err
	}
	span.SetAttributes(attribute.String("booking.date", key))

	set, hit, err := s.Cache.Get(ctx, key)
	if err != nil {
		return "", nil, Storage("load availability", err)
	}
	if !hit {
		// Miss fills write the entry; like commits they hold the date lock.
		unlock, err := s.lockDate(ctx, key)
		if err != nil {
			return "", nil, err
		}
		set, hit, err = s.Cache.Load(ctx, key)
		unlock()
		if err != nil {
			return "", nil, Storage("load availability", err)
		}
	}
	observeLookup(hit)
	return key, set.Sorted(), nil
}

// lockDate takes the date lock, bounded by LockTimeout.
func (s *BookingService) lockDate(ctx context.Context, dateKey string) (func(), error) {
	if s.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LockTimeout)
		defer cancel()
	}
	unlock, err := s.Locker.Lock(ctx, availability.LockKey(dateKey))
	if err != nil {
		return nil, Storage("acquire date lock", err)
	}
	return unlock, nil
}

// CreateOrder opens a gateway order for amount minor units.
func (s *BookingService) CreateOrder(ctx context.Context, amount int64) (OrderResult, error) {
	ctx, span := s.tracer().Start(ctx, "CreateOrder", trace.WithAttributes(attribute.Int64("order.amount", amount)))
	defer span.End()

	if amount <= 0 {
		return OrderResult{}, Validation(ErrInvalidAmount)
	}
	o, err := s.Gateway.CreateOrder(ctx, amount, s.Currency)
	if err != nil {
		var ue *payment.UpstreamError
		if errors.As(err, &ue) {
			return OrderResult{}, Upstream("Payment gateway error: "+ue.Description, err)
		}
		if errors.Is(err, payment.ErrInvalidAmount) {
			return OrderResult{}, Validation(ErrInvalidAmount)
		}
		return OrderResult{}, Upstream("Payment gateway unreachable", err)
	}
	if s.DB != nil {
		if _, err := repo.SaveOrder(ctx, s.DB, o.ID, o.Amount, o.Currency); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("order_id", o.ID).Msg("order not recorded; its amount will be missing from revenue")
		}
	}
	return OrderResult{OrderID: o.ID, Amount: o.Amount, Currency: o.Currency, KeyID: s.Gateway.KeyID()}, nil
}

// orderAmount returns the recorded amount of orderID in major units.
func (s *BookingService) orderAmount(ctx context.Context, orderID string) (string, bool) {
	o, err := repo.GetOrder(ctx, s.DB, orderID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("order amount unavailable")
		}
		return "", false
	}
	return MajorUnits(o.Amount).String(), true
}

// MajorUnits converts a minor-unit amount (paise, cents) to major units.
func MajorUnits(minor int64) decimal.Decimal { return decimal.New(minor, -2) }

// VerifyAndSave authenticates the callback and commits the booking.
func (s *BookingService) VerifyAndSave(ctx context.Context, req VerifyRequest) (Confirmation, error) {
	ctx, span := s.tracer().Start(ctx, "VerifyAndSave", trace.WithAttributes(attribute.String("order.id", req.OrderID)))
	defer span.End()
	log := zerolog.Ctx(ctx)

	if strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.PaymentID) == "" ||
		strings.TrimSpace(req.Signature) == "" || len(req.Booking) == 0 {
		bookingRejections.WithLabelValues("verification").Inc()
		return Confirmation{}, Verification(ErrMissingVerificationField)
	}
	if err := s.Verifier.Verify(req.OrderID, req.PaymentID, req.Signature); err != nil {
		bookingRejections.WithLabelValues("verification").Inc()
		if errors.Is(err, payment.ErrMissingField) {
			return Confirmation{}, Verification(ErrMissingVerificationField)
		}
		return Confirmation{}, &Error{Kind: KindVerification, Message: ErrSignatureMismatch.Error(), Err: err}
	}

	fields := Stringify(req.Booking)
	dateLabel := pickLabel(fields, s.DateField, "date")
	dateKey, err := s.NormalizeDate(fields[dateLabel])
	if err != nil {
		bookingRejections.WithLabelValues("validation").Inc()
		return Confirmation{}, err
	}
	requested := slots.Parse(fields[pickLabel(fields, s.SlotField, "slot")])
	if requested.Len() == 0 {
		bookingRejections.WithLabelValues("validation").Inc()
		return Confirmation{}, Validation(ErrNoSlots)
	}
	span.SetAttributes(attribute.String("booking.date", dateKey), attribute.Int("booking.slots", requested.Len()))

	conf, err := s.commit(ctx, req, fields, dateKey, requested)
	if err != nil {
		return Confirmation{}, err
	}
	bookingsCommitted.Inc()

	ev := events.NewBookingConfirmed(s.now(), dateKey, conf.Slots, req.PaymentID, req.OrderID, conf.Row)
	if s.Events != nil {
		if err := s.Events.PublishJSON(ctx, events.RoutingBookingConfirmed, ev); err != nil {
			log.Warn().Err(err).Str("date", dateKey).Msg("booking event not published")
		}
	}
	return conf, nil
}

// commit runs the conflict check and the writes under the date lock.
func (s *BookingService) commit(ctx context.Context, req VerifyRequest, fields map[string]string, dateKey string, requested slots.Set) (Confirmation, error) {
	log := zerolog.Ctx(ctx)

	unlock, err := s.lockDate(ctx, dateKey)
	if err != nil {
		return Confirmation{}, err
	}
	defer unlock()

	existing, hit, err := s.Cache.Load(ctx, dateKey)
	if err != nil {
		return Confirmation{}, Storage("load availability", err)
	}
	observeLookup(hit)
	if taken := slots.Conflicts(requested, existing); taken.Len() > 0 {
		bookingRejections.WithLabelValues("conflict").Inc()
		return Confirmation{}, Conflict(taken.Sorted())
	}

	if _, err := repo.ClaimPayment(ctx, s.DB, req.PaymentID, req.OrderID, dateKey, requested.String()); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			bookingRejections.WithLabelValues("replay").Inc()
			return Confirmation{}, Verification(ErrPaymentAlreadyUsed)
		}
		return Confirmation{}, Storage("claim payment", err)
	}

	link := s.upload(ctx, req)

	headers, err := s.Layout.BookingHeaders(ctx, s.Sheet)
	if err == nil && len(headers) == 0 {
		err = ledger.ErrNoHeaders
	}
	if err != nil {
		s.release(ctx, req.PaymentID)
		return Confirmation{}, Storage("read ledger headers", err)
	}

	row := s.Mapper.Map(headers, fields, ledger.SystemFields{
		PaymentStatus: s.PaymentStatus,
		TransactionID: req.PaymentID,
		Timestamp:     s.now().In(s.loc()).Format("2006-01-02 15:04:05"),
		DocumentLink:  link,
	})
	// The scanner reads the first date and slot columns; they always get the
	// canonical values so what is written is what a rebuild will see.
	if i := ledger.FindColumn(headers, "date"); i >= 0 {
		row[i] = dateKey
	}
	if i := ledger.FindColumn(headers, "slot"); i >= 0 {
		row[i] = requested.String()
	}
	// The amount column holds what the verified order charged, not what the
	// form claimed.
	if i := ledger.FindColumn(headers, "amount"); i >= 0 {
		if amt, ok := s.orderAmount(ctx, req.OrderID); ok {
			row[i] = amt
		}
	}

	n, err := s.Writer.Append(ctx, row)
	if err != nil {
		s.release(ctx, req.PaymentID)
		return Confirmation{}, Storage("append ledger row", err)
	}

	if _, err := s.Cache.Merge(ctx, dateKey, requested); err != nil {
		log.Warn().Err(err).Str("date", dateKey).Msg("availability merge failed; dropping entry")
		if derr := s.Cache.Delete(ctx, dateKey); derr != nil {
			log.Error().Err(derr).Str("date", dateKey).Msg("availability entry not dropped")
		}
	}

	return Confirmation{DateKey: dateKey, Slots: requested.Sorted(), Row: n, DocumentLink: link}, nil
}

func (s *BookingService) release(ctx context.Context, paymentID string) {
	if err := repo.ReleaseClaim(context.WithoutCancel(ctx), s.DB, paymentID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("payment_id", paymentID).Msg("payment claim not released")
	}
}

// upload stores the document, degrading to a placeholder link on failure.
func (s *BookingService) upload(ctx context.Context, req VerifyRequest) string {
	if strings.TrimSpace(req.DocumentPayload) == "" || s.Documents == nil {
		return ""
	}
	link, err := s.Documents.Upload(ctx, req.DocumentPayload, req.DocumentName)
	if err != nil {
		documentFailures.Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Msg("document upload failed")
		return "Error saving document: " + err.Error()
	}
	return link
}

// pickLabel returns preferred when present, else the first label (sorted)
// whose normalized form contains needle.
func pickLabel(fields map[string]string, preferred, needle string) string {
	if preferred != "" {
		if _, ok := fields[preferred]; ok {
			return preferred
		}
	}
	labels := make([]string, 0, len(fields))
	for k := range fields {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if strings.Contains(ledger.NormalizeLabel(l), needle) {
			return l
		}
	}
	return preferred
}

// Stringify renders submitted JSON values as ledger cell text. Arrays are
// joined with ", ".
func Stringify(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = stringifyValue(v)
	}
	return out
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, stringifyValue(e))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}
