package events

// Pointer fields let handlers tell a missing field from a zero value.

type ChangeStock struct {
	ProductID *string  `json:"product_id"`
	Stock     *float64 `json:"stock"`
}

type ChangePrice struct {
	ProductID *string  `json:"product_id"`
	Price     *float64 `json:"price"`
}

type ChangeName struct {
	ProductID *string `json:"product_id"`
	Name      *string `json:"name"`
}

type DeleteProduct struct {
	ProductID *string `json:"product_id"`
}

type PaymentSuccess struct {
	OrderID       *string  `json:"order_id"`
	Amount        *float64 `json:"amount,omitempty"`
	TransactionNo string   `json:"transaction_no,omitempty"`
}

type OrderAmountGet struct {
	OrderID       *string `json:"order_id"`
	CorrelationID *string `json:"correlationId"`
}

type OrderAmountResult struct {
	CorrelationID string  `json:"correlationId"`
	OrderID       string  `json:"order_id,omitempty"`
	Amount        float64 `json:"amount"`
}

// Outgoing bodies use plain fields.

type StockChanged struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

type PriceChanged struct {
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
}

type NameChanged struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

type ProductDeleted struct {
	ProductID string `json:"product_id"`
}

type PaymentSucceeded struct {
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	TransactionNo string  `json:"transaction_no,omitempty"`
}

type AmountRequest struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlationId"`
}
