package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-turf-booking/internal/ledger"
)

// PricingService exposes the day -> price table.
type PricingService struct {
	Store *ledger.PricingStore
}

// Get returns prices keyed by lowercase day name.
func (s *PricingService) Get(ctx context.Context) (map[string]decimal.Decimal, error) {
	ctx, span := otel.Tracer("services/PricingService").Start(ctx, "Get")
	defer span.End()

	prices, err := s.Store.Get(ctx)
	if err != nil {
		return nil, Storage("read pricing", err)
	}
	return prices, nil
}

// Update sets the price of one day.
func (s *PricingService) Update(ctx context.Context, day string, price decimal.Decimal) error {
	ctx, span := otel.Tracer("services/PricingService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("pricing.day", day)))
	defer span.End()

	if strings.TrimSpace(day) == "" {
		return Validation(ErrDayRequired)
	}
	err := s.Store.Set(ctx, day, price)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrDayNotFound):
		return &Error{Kind: KindNotFound, Message: ErrDayNotFound.Error(), Err: err}
	case errors.Is(err, ledger.ErrNegativePrice):
		return &Error{Kind: KindValidation, Message: ErrInvalidPrice.Error(), Err: err}
	default:
		return Storage("update pricing", err)
	}
}

// ParsePrice accepts a decimal string such as "1200" or "750.50".
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, Validation(ErrInvalidPrice)
	}
	p, err := decimal.NewFromString(raw)
	if err != nil || p.IsNegative() {
		return decimal.Decimal{}, Validation(ErrInvalidPrice)
	}
	return p, nil
}
