package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/grosnack/grosnack/internal/domain/order"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.GetByID(r.Context(), r.PathValue("orderID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	// Another session's order looks like no order at all.
	if o.UserID != userID {
		mapError(w, r, order.ErrNotFound)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var status string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "status" {
			v, err := d.Str()
			status = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	next := order.Status(status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}

	orderID := r.PathValue("orderID")
	prev, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		mapError(w, r, err)
		return
	}
	if prev.UserID != userID {
		mapError(w, r, order.ErrNotFound)
		return
	}
	if !order.CanTransition(prev.Status, next) {
		writeError(w, http.StatusConflict,
			"cannot move order from "+string(prev.Status)+" to "+string(next))
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, next); err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(orderID)
	e.FieldStart("status")
	e.Str(string(next))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// clearOrders is the debug/reset path: it drops the user's orders, cart, and
// metrics state. Regular flows never delete orders.
func (h *Handler) clearOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.orders.Clear(r.Context(), userID); err != nil {
		mapError(w, r, err)
		return
	}
	h.metrics.Reset(userID)
	h.carts.Drop(userID)
	w.WriteHeader(http.StatusNoContent)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.FieldStart("status")
	e.Str(string(o.Status))

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(item.ProductID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("brand")
		e.Str(item.Brand)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("unit_price")
		e.Float64(item.UnitPrice.InexactFloat64())
		e.FieldStart("subtotal")
		e.Float64(item.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("total")
	e.Float64(o.Total.InexactFloat64())
	e.FieldStart("wholesale_subtotal")
	e.Float64(o.WholesaleSubtotal.InexactFloat64())
	e.FieldStart("savings")
	e.Float64(o.Savings.InexactFloat64())
	e.FieldStart("payment_method")
	e.Str(o.PaymentMethod)
	e.FieldStart("wholesale")
	e.Bool(o.Wholesale)

	if o.DeliveryDate != "" {
		e.FieldStart("delivery")
		e.ObjStart()
		e.FieldStart("date")
		e.Str(o.DeliveryDate)
		e.FieldStart("time_slot")
		e.Str(o.DeliveryTimeSlot)
		e.FieldStart("address")
		e.Str(o.DeliveryAddress)
		e.FieldStart("notes")
		e.Str(o.DeliveryNotes)
		e.ObjEnd()
	}
	e.ObjEnd()
}
