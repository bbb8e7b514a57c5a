package domain

import "time"

// Order is a gateway order opened through createOrder. Amount is in minor
// units and is what the payer was asked to pay; a verified payment for the
// order is worth exactly this much.
type Order struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Amount    int64     `json:"amount"     gorm:"not null"`
	Currency  string    `json:"currency"   gorm:"type:char(3);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }
