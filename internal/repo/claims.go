// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the payment claim helpers that stop a
// verified payment from committing more than one booking.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/domain"
)

// ClaimPayment inserts a claim for paymentID and returns ErrDuplicate when
// the payment has already been claimed.
func ClaimPayment(ctx context.Context, db *gorm.DB, paymentID, orderID, dateKey, slots string) (*domain.PaymentClaim, error) {
	rec := &domain.PaymentClaim{
		PaymentID: paymentID,
		OrderID:   orderID,
		DateKey:   dateKey,
		Slots:     slots,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// GetClaim returns the claim for paymentID or ErrNotFound.
func GetClaim(ctx context.Context, db *gorm.DB, paymentID string) (*domain.PaymentClaim, error) {
	var rec domain.PaymentClaim
	err := db.WithContext(ctx).First(&rec, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// ReleaseClaim deletes the claim for paymentID. Releasing a missing claim is
// not an error.
func ReleaseClaim(ctx context.Context, db *gorm.DB, paymentID string) error {
	return db.WithContext(ctx).Where("payment_id = ?", paymentID).Delete(&domain.PaymentClaim{}).Error
}
