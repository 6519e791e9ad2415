package httpapi

import (
	"errors"
	"net/http"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	"github.com/bedive-215/tech-store-sub001/internal/payment"
	"github.com/bedive-215/tech-store-sub001/internal/product"
	"github.com/bedive-215/tech-store-sub001/internal/rpc"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoncodec.Encode(w, v)
}

// writeError maps domain errors to status codes. Unknown errors are 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, rpc.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, payment.ErrAmountUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, payment.ErrNotFound), errors.Is(err, product.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, payment.ErrInvalidOrderID), errors.Is(err, product.ErrInvalid):
		status = http.StatusBadRequest
	}

	msg := http.StatusText(status)
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad request"})
}
