// Package handler exposes the fulfillment core over HTTP as plain read
// models: cart summary and validation, orders, metrics, and the checkout
// operation itself. It performs no business logic of its own.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/cart"
	"github.com/grosnack/grosnack/internal/domain/checkout"
	"github.com/grosnack/grosnack/internal/domain/metrics"
	"github.com/grosnack/grosnack/internal/domain/order"
	"github.com/grosnack/grosnack/internal/domain/product"
	"github.com/grosnack/grosnack/internal/domain/stock"
	"github.com/grosnack/grosnack/internal/storage/local"
)

// userHeader carries the session-provided user identity. Server-issued
// identities are UUIDs; anything else is treated as a guest session.
const userHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Handler wires the HTTP surface to the fulfillment core.
type Handler struct {
	products product.Repository
	carts    *local.CartStore
	orders   *order.Store
	metrics  *metrics.Aggregator
	checkout *checkout.Orchestrator
	ledger   *stock.Ledger
}

// NewHandler constructs a Handler with the required core dependencies.
func NewHandler(
	products product.Repository,
	carts *local.CartStore,
	orders *order.Store,
	m *metrics.Aggregator,
	co *checkout.Orchestrator,
	ledger *stock.Ledger,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		metrics:  m,
		checkout: co,
		ledger:   ledger,
	}
}

// Routes registers all API endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/wholesale", h.toggleWholesale)
	mux.HandleFunc("POST /api/cart/schedule", h.setSchedule)
	mux.HandleFunc("POST /api/checkout", h.postCheckout)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("DELETE /api/orders", h.clearOrders)
	mux.HandleFunc("GET /api/orders/{orderID}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{orderID}/status", h.updateOrderStatus)
	mux.HandleFunc("GET /api/metrics", h.getMetrics)
}

// userID extracts the session identity. A missing header ends the request
// with 400 and returns false.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return "", false
	}
	return id, true
}

// cartFor returns the per-user cart for the request's session.
func (h *Handler) cartFor(userID string) *cart.Cart {
	return h.carts.Get(userID)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "read request body")
		return nil, false
	}
	return body, true
}

// writeJSON sends the encoder's buffer as an application/json response.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

func writeValidationError(w http.ResponseWriter, reasons []string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusUnprocessableEntity)
	e.FieldStart("message")
	e.Str("cart validation failed")
	e.FieldStart("reasons")
	e.ArrStart()
	for _, reason := range reasons {
		e.Str(reason)
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusUnprocessableEntity, &e)
}

// mapError converts core errors to HTTP error responses. Unexpected errors
// are logged and hidden behind a plain 500.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr            *checkout.ValidationError
		insufficientErr *stock.InsufficientStockError
	)
	switch {
	case errors.As(err, &vErr):
		writeValidationError(w, vErr.Reasons)
	case errors.As(err, &insufficientErr):
		writeError(w, http.StatusConflict, insufficientErr.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
