package domain

import "time"

// PaymentClaim records that a verified gateway payment has been spent on a
// booking. The primary key on PaymentID makes a second claim of the same
// payment fail, which is what stops a captured callback from being
// replayed to book again.
type PaymentClaim struct {
	PaymentID string    `json:"payment_id" gorm:"type:varchar(64);primaryKey"`
	OrderID   string    `json:"order_id"   gorm:"type:varchar(64);not null;index:idx_claims_order"`
	DateKey   string    `json:"date_key"   gorm:"type:char(10);not null"`
	Slots     string    `json:"slots"      gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for PaymentClaim.
func (PaymentClaim) TableName() string { return "payment_claims" }
