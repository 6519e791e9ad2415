// Package cart keeps cart line items in step with product changes.
package cart

import "time"

// Item is a cart line with the product snapshot shown to the shopper.
type Item struct {
	ID          string
	CartID      string
	ProductID   string
	ProductName string
	Price       float64
	Stock       int
	Quantity    int
	UpdatedAt   time.Time
}
