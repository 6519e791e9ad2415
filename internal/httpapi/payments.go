package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	"github.com/bedive-215/tech-store-sub001/internal/payment"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, orderID string) (payment.Payment, error)
	ConfirmPayment(ctx context.Context, orderID, transactionNo string) (payment.Payment, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) Routes(r chi.Router) {
	r.Route("/api/payments/{orderId}", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/confirm", h.Confirm)
	})
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.CreatePayment(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Confirm accepts an optional {"transaction_no": "..."} body.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionNo string `json:"transaction_no"`
	}
	if r.ContentLength != 0 {
		if err := jsoncodec.Decode(r.Body, &req); err != nil {
			badRequest(w)
			return
		}
	}

	p, err := h.svc.ConfirmPayment(r.Context(), chi.URLParam(r, "orderId"), req.TransactionNo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
