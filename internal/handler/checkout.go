package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

func (h *Handler) postCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	paymentMethod := "card"
	d := jx.DecodeBytes(body)
	if len(body) > 0 {
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key == "payment_method" {
				v, err := d.Str()
				paymentMethod = v
				return err
			}
			return d.Skip()
		}); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	c := h.cartFor(userID)
	orderID, err := h.checkout.Checkout(r.Context(), c, userID, paymentMethod)
	if err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(orderID)
	e.FieldStart("status")
	e.Str("pending")
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}
