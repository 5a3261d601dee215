package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grosnack/grosnack/internal/domain/cart"
	"github.com/grosnack/grosnack/internal/domain/checkout"
	"github.com/grosnack/grosnack/internal/domain/metrics"
	"github.com/grosnack/grosnack/internal/domain/order"
	"github.com/grosnack/grosnack/internal/domain/product"
	"github.com/grosnack/grosnack/internal/domain/stock"
	"github.com/grosnack/grosnack/internal/storage/local"
)

// --- Helpers ---

type nopSender struct{}

func (nopSender) Send(context.Context, *order.Order) bool { return true }

type testServer struct {
	mux    *http.ServeMux
	orders *order.Store
}

func newTestServer(t *testing.T, products ...product.Product) *testServer {
	t.Helper()

	catalog := local.NewProductRepository(products)
	ledger := stock.NewLedger(nil, catalog, nil)
	ledger.Sync(context.Background(), products)

	store := order.NewStore(nil, local.NewOrderRepository(), ledger, nil)
	agg := metrics.NewAggregator(decimal.RequireFromString("500.00"), store, nil)
	store.SetMetricsRefresher(agg)
	orch := checkout.NewOrchestrator(ledger, store, agg, nopSender{}, nil)
	carts := local.NewCartStore(func() *cart.Cart {
		return cart.New(ledger, decimal.RequireFromString("5.99"))
	})

	mux := http.NewServeMux()
	NewHandler(catalog, carts, store, agg, orch, ledger).Routes(mux)
	return &testServer{mux: mux, orders: store}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func testProduct(id string) product.Product {
	return product.Product{
		ID:             id,
		Name:           "Snack " + id,
		Brand:          "Crunchy Co",
		Price:          decimal.RequireFromString("2.50"),
		WholesalePrice: decimal.RequireFromString("2.00"),
		MinOrderQty:    1,
		Stock:          50,
		Available:      true,
	}
}

// --- Tests ---

func TestAddCartItem_OversizedBodyRejected(t *testing.T) {
	srv := newTestServer(t, testProduct("p1"))

	body := bytes.NewReader(bytes.Repeat([]byte("x"), maxBodyBytes+1))
	w := srv.do(t, http.MethodPost, "/api/cart/items", "guest-alice", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
}

func TestAddCartItem_BodyAtLimitStillParsed(t *testing.T) {
	srv := newTestServer(t, testProduct("p1"))

	// Pad the JSON with whitespace up to exactly the limit.
	payload := `{"product_id":"p1","quantity":2}`
	body := payload + strings.Repeat(" ", maxBodyBytes-len(payload))
	w := srv.do(t, http.MethodPost, "/api/cart/items", "guest-alice", strings.NewReader(body))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetOrder_ScopedToSession(t *testing.T) {
	srv := newTestServer(t, testProduct("p1"))
	id, err := srv.orders.Create(context.Background(), &order.Order{UserID: "guest-alice"})
	require.NoError(t, err)

	w := srv.do(t, http.MethodGet, "/api/orders/"+id, "guest-alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/orders/"+id, "guest-bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/orders/"+id, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatus_ScopedToSession(t *testing.T) {
	srv := newTestServer(t, testProduct("p1"))
	id, err := srv.orders.Create(context.Background(), &order.Order{UserID: "guest-alice"})
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/orders/"+id+"/status", "guest-bob",
		strings.NewReader(`{"status":"cancelled"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The order is untouched and still cancellable by its owner.
	w = srv.do(t, http.MethodPost, "/api/orders/"+id+"/status", "guest-alice",
		strings.NewReader(`{"status":"confirmed"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := srv.orders.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, stored.Status)
}
