package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/datekey"
	"github.com/tbourn/go-turf-booking/internal/ledger"
	"github.com/tbourn/go-turf-booking/internal/repo"
	"github.com/tbourn/go-turf-booking/internal/slots"
)

// LedgerStatter reports a cheap fingerprint of the ledger.
type LedgerStatter interface {
	Stats(ctx context.Context) (count int64, maxUpdatedAt *time.Time, err error)
}

// Dashboard is today's derived booking summary.
type Dashboard struct {
	Date           string
	TodayBookings  int
	TodayRevenue   decimal.Decimal
	CompletedSlots int
	RemainingSlots int
}

// ReportService derives read-only views from the ledger.
type ReportService struct {
	Sheet    ledger.Sheet
	Layout   ledger.Layout
	Location *time.Location
	Now      func() time.Time
	// Stats is optional; without it ETag returns "".
	Stats LedgerStatter
	// Payments is optional; it prices successful rows whose amount cell is
	// missing or blank.
	Payments PaymentAmounts
}

// PaymentAmounts resolves payment ids to the amount paid, in major units.
// Unknown ids are absent from the result.
type PaymentAmounts interface {
	PaidAmounts(ctx context.Context, paymentIDs []string) (map[string]decimal.Decimal, error)
}

// ClaimedOrders prices payments from their claims and recorded orders.
type ClaimedOrders struct {
	DB *gorm.DB
}

// PaidAmounts implements PaymentAmounts.
func (c ClaimedOrders) PaidAmounts(ctx context.Context, paymentIDs []string) (map[string]decimal.Decimal, error) {
	minor, err := repo.PaidAmounts(ctx, c.DB, paymentIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(minor))
	for id, amt := range minor {
		out[id] = MajorUnits(amt)
	}
	return out, nil
}

func (s *ReportService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *ReportService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Registrations returns every booking row on the given date, keyed by header,
// in ledger order.
func (s *ReportService) Registrations(ctx context.Context, rawDate string) ([]map[string]string, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "Registrations")
	defer span.End()

	if strings.TrimSpace(rawDate) == "" {
		return nil, Validation(ErrDateRequired)
	}
	key, err := datekey.NormalizeString(rawDate, s.loc())
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: ErrInvalidDate.Error(), Err: err}
	}
	span.SetAttributes(attribute.String("booking.date", key))

	t, err := ledger.ReadBookings(ctx, s.Sheet, s.Layout)
	if err != nil {
		return nil, Storage("read ledger", err)
	}
	out := []map[string]string{}
	for _, r := range t.ForDate(key, s.loc()) {
		out = append(out, t.AsMap(r))
	}
	return out, nil
}

// ETag returns a weak validator that changes whenever the ledger does.
func (s *ReportService) ETag(ctx context.Context) (string, error) {
	if s.Stats == nil {
		return "", nil
	}
	count, maxAt, err := s.Stats.Stats(ctx)
	if err != nil {
		return "", Storage("ledger stats", err)
	}
	var ts int64
	if maxAt != nil {
		ts = maxAt.UTC().UnixNano()
	}
	return fmt.Sprintf(`W/"ledger-%d-%d"`, count, ts), nil
}

// DashboardStats computes today's bookings, revenue and slot counters.
//
// Revenue sums the amount column of rows whose status contains "success"
// or "confirmed". A successful row with no usable amount cell is priced by
// its transaction id through Payments. A slot is completed when its end hour is at or before the
// current hour; slots that do not parse as hour ranges count as outstanding.
// Remaining capacity is 24 minus elapsed hours minus outstanding slots,
// floored at zero.
func (s *ReportService) DashboardStats(ctx context.Context) (Dashboard, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "DashboardStats")
	defer span.End()

	now := s.now().In(s.loc())
	today := datekey.Today(now, s.loc())
	hour := now.Hour()

	t, err := ledger.ReadBookings(ctx, s.Sheet, s.Layout)
	if err != nil {
		return Dashboard{}, Storage("read ledger", err)
	}

	statusIdx := t.Column("status")
	amountIdx := amountColumn(t)
	slotIdx := t.Column("slot")
	txnIdx := t.Column("transaction")

	d := Dashboard{Date: today, TodayRevenue: decimal.Zero}
	outstanding := 0
	var unpriced []string
	for _, r := range t.ForDate(today, s.loc()) {
		d.TodayBookings++

		status := strings.ToLower(r.Get(statusIdx))
		if strings.Contains(status, "success") || strings.Contains(status, "confirmed") {
			if amt, err := decimal.NewFromString(cleanAmount(r.Get(amountIdx))); err == nil {
				d.TodayRevenue = d.TodayRevenue.Add(amt)
			} else if id := r.Get(txnIdx); id != "" {
				unpriced = append(unpriced, id)
			}
		}

		if slotIdx < 0 {
			continue
		}
		for id := range slots.Parse(r.Get(slotIdx)) {
			rng, err := slots.ParseRange(id)
			if err == nil && rng.CompletedBy(hour) {
				d.CompletedSlots++
			} else {
				outstanding++
			}
		}
	}
	d.RemainingSlots = max(0, 24-hour-outstanding)

	if len(unpriced) > 0 && s.Payments != nil {
		paid, err := s.Payments.PaidAmounts(ctx, unpriced)
		if err != nil {
			return Dashboard{}, Storage("read order amounts", err)
		}
		for _, id := range unpriced {
			if amt, ok := paid[id]; ok {
				d.TodayRevenue = d.TodayRevenue.Add(amt)
			}
		}
	}
	span.SetAttributes(
		attribute.Int("dashboard.bookings", d.TodayBookings),
		attribute.Int("dashboard.completed", d.CompletedSlots),
	)
	return d, nil
}

func amountColumn(t ledger.Table) int {
	for _, needle := range []string{"amount", "price", "total"} {
		if i := t.Column(needle); i >= 0 {
			return i
		}
	}
	return -1
}

// cleanAmount strips currency symbols and thousands separators.
func cleanAmount(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
