package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/domain"
)

// SaveOrder records a gateway order. Saving an order id twice returns
// ErrDuplicate.
func SaveOrder(ctx context.Context, db *gorm.DB, id string, amount int64, currency string) (*domain.Order, error) {
	rec := &domain.Order{ID: id, Amount: amount, Currency: currency, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// GetOrder returns the order with id or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var rec domain.Order
	err := db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PaidAmounts maps each claimed payment id to the minor-unit amount of the
// order it paid for. Payments without a claim or a recorded order are absent
// from the result.
func PaidAmounts(ctx context.Context, db *gorm.DB, paymentIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PaymentID string
		Amount    int64
	}
	err := db.WithContext(ctx).
		Table("payment_claims AS c").
		Select("c.payment_id AS payment_id, o.amount AS amount").
		Joins("JOIN orders AS o ON o.id = c.order_id").
		Where("c.payment_id IN ?", paymentIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PaymentID] = r.Amount
	}
	return out, nil
}
