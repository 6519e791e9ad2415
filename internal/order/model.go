// Package order answers amount lookups and records successful payments.
package order

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

type Order struct {
	ID          string
	UserID      string
	TotalAmount float64
	Status      Status
	PaidAt      *time.Time
	CreatedAt   time.Time
}
