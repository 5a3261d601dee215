package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/grosnack/grosnack/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		encodeProduct(&e, p, h.ledger.Available(p.ID))
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// encodeProduct writes the catalog entry together with the ledger's tracked
// availability, which is what the cart validates against.
func encodeProduct(e *jx.Encoder, p product.Product, tracked int) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("brand")
	e.Str(p.Brand)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("wholesale_price")
	e.Float64(p.WholesalePrice.InexactFloat64())
	e.FieldStart("min_order_qty")
	e.Int(p.MinOrderQty)
	e.FieldStart("max_order_qty")
	e.Int(p.MaxOrderQty)
	e.FieldStart("stock")
	e.Int(tracked)
	e.FieldStart("available")
	e.Bool(p.Available)
	e.ObjEnd()
}
