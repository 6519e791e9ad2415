package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	"github.com/bedive-215/tech-store-sub001/internal/payment"
	"github.com/bedive-215/tech-store-sub001/internal/product"
	"github.com/bedive-215/tech-store-sub001/internal/rpc"
)

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(NewRouter(nil), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "techstore_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := serve(NewRouter(reg), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "techstore_test_total 1")
}

type fakeProducts struct {
	items map[string]*product.Product
	calls []string
}

func (f *fakeProducts) Get(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) UpdateStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return product.ErrInvalid
	}
	p, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Stock = stock
	f.calls = append(f.calls, fmt.Sprintf("stock %s %d", id, stock))
	return nil
}

func (f *fakeProducts) UpdatePrice(ctx context.Context, id string, price float64) error {
	p, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Price = price
	f.calls = append(f.calls, fmt.Sprintf("price %s %g", id, price))
	return nil
}

func (f *fakeProducts) UpdateName(ctx context.Context, id, name string) error {
	if name == "" {
		return product.ErrInvalid
	}
	p, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Name = name
	f.calls = append(f.calls, "name "+id+" "+name)
	return nil
}

func (f *fakeProducts) Delete(ctx context.Context, id string) error {
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	delete(f.items, id)
	f.calls = append(f.calls, "delete "+id)
	return nil
}

func productRouter(f *fakeProducts) http.Handler {
	return NewRouter(nil, NewProductHandler(f).Routes)
}

func TestProductRoutes(t *testing.T) {
	f := &fakeProducts{items: map[string]*product.Product{"p1": {ID: "p1", Name: "Mouse", Price: 10, Stock: 5}}}
	r := productRouter(f)

	rec := serve(r, http.MethodPatch, "/api/products/p1/stock", `{"stock":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got product.Product
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Stock)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPatch, "/api/products/p1/price", `{"price":12.5}`).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPatch, "/api/products/p1/name", `{"name":"Trackball"}`).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/products/p1", "").Code)

	assert.Equal(t, []string{"stock p1 2", "price p1 12.5", "name p1 Trackball", "delete p1"}, f.calls)
}

func TestProductRoutes_Errors(t *testing.T) {
	f := &fakeProducts{items: map[string]*product.Product{"p1": {ID: "p1"}}}
	r := productRouter(f)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPatch, "/api/products/p1/stock", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPatch, "/api/products/p1/stock", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPatch, "/api/products/p1/stock", `{"stock":-3}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPatch, "/api/products/p1/name", `{"name":""}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPatch, "/api/products/ghost/price", `{"price":1}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/api/products/ghost", "").Code)
	assert.Empty(t, f.calls)
}

type fakePayments struct {
	createErr  error
	confirmErr error
	txn        string
}

func (f *fakePayments) CreatePayment(_ context.Context, orderID string) (payment.Payment, error) {
	if f.createErr != nil {
		return payment.Payment{}, f.createErr
	}
	return payment.Payment{OrderID: orderID, Amount: 150000, Status: payment.StatusPending, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakePayments) ConfirmPayment(_ context.Context, orderID, txn string) (payment.Payment, error) {
	if f.confirmErr != nil {
		return payment.Payment{}, f.confirmErr
	}
	f.txn = txn
	return payment.Payment{OrderID: orderID, Status: payment.StatusSucceeded, TransactionNo: txn}, nil
}

func TestPaymentRoutes(t *testing.T) {
	f := &fakePayments{}
	r := NewRouter(nil, NewPaymentHandler(f).Routes)

	rec := serve(r, http.MethodPost, "/api/payments/o1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var p payment.Payment
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 150000.0, p.Amount)

	rec = serve(r, http.MethodPost, "/api/payments/o1/confirm", `{"transaction_no":"T-9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T-9", f.txn)

	rec = serve(r, http.MethodPost, "/api/payments/o1/confirm", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentRoutes_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get amount: %w", rpc.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: order o1", payment.ErrAmountUnavailable), http.StatusUnprocessableEntity},
		{payment.ErrInvalidOrderID, http.StatusBadRequest},
		{payment.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("redis down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := NewRouter(nil, NewPaymentHandler(&fakePayments{createErr: tc.err, confirmErr: tc.err}).Routes)

		assert.Equal(t, tc.want, serve(r, http.MethodPost, "/api/payments/o1", "").Code, tc.err.Error())
		assert.Equal(t, tc.want, serve(r, http.MethodPost, "/api/payments/o1/confirm", "").Code, tc.err.Error())
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	r := NewRouter(nil, NewPaymentHandler(&fakePayments{createErr: fmt.Errorf("dial tcp 10.0.0.5:6379: refused")}).Routes)

	rec := serve(r, http.MethodPost, "/api/payments/o1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
