// Package payment creates payments from order amounts fetched over the
// broker and announces successful payments.
package payment

import (
	"errors"
	"time"
)

var (
	// ErrAmountUnavailable means the order service answered but gave no
	// usable amount. It is distinct from rpc.ErrTimeout (no answer at all).
	ErrAmountUnavailable = errors.New("payment: order service did not return an amount")
	ErrInvalidOrderID    = errors.New("payment: order id is required")
	ErrNotFound          = errors.New("payment: not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
)

type Payment struct {
	OrderID       string     `json:"order_id"`
	Amount        float64    `json:"amount"`
	Status        Status     `json:"status"`
	TransactionNo string     `json:"transaction_no,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}
