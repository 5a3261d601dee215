package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/grosnack/grosnack/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(userID)

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var (
		productID string
		quantity  = 1
	)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Str()
			productID = v
			return err
		case "quantity":
			v, err := d.Int()
			quantity = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if productID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		mapError(w, r, err)
		return
	}

	c := h.cartFor(userID)
	if err := c.AddLine(*p, quantity); err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	quantity := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			v, err := d.Int()
			quantity = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	c := h.cartFor(userID)
	if err := c.UpdateQuantity(r.PathValue("productID"), quantity); err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(userID)
	c.RemoveLine(r.PathValue("productID"))

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) toggleWholesale(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(userID)
	c.ToggleWholesaleMode()

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) setSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var s cart.DeliverySchedule
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "date":
			s.Date, err = d.Str()
		case "time_slot":
			s.TimeSlot, err = d.Str()
		case "address":
			s.Address, err = d.Str()
		case "notes":
			s.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if s.Date == "" || s.Address == "" {
		writeError(w, http.StatusBadRequest, "date and address are required")
		return
	}

	c := h.cartFor(userID)
	c.SetSchedule(s)

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	summary := c.Summary()
	validation := c.Validate()

	e.ObjStart()
	e.FieldStart("wholesale")
	e.Bool(c.Wholesale())

	e.FieldStart("lines")
	e.ArrStart()
	for _, line := range c.Lines() {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(line.Product.ID)
		e.FieldStart("name")
		e.Str(line.Product.Name)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.FieldStart("unit_price")
		e.Float64(line.UnitPrice.InexactFloat64())
		e.FieldStart("subtotal")
		e.Float64(line.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	if s := c.Schedule(); s != nil {
		e.FieldStart("schedule")
		e.ObjStart()
		e.FieldStart("date")
		e.Str(s.Date)
		e.FieldStart("time_slot")
		e.Str(s.TimeSlot)
		e.FieldStart("address")
		e.Str(s.Address)
		e.FieldStart("notes")
		e.Str(s.Notes)
		e.ObjEnd()
	}

	e.FieldStart("summary")
	e.ObjStart()
	e.FieldStart("item_count")
	e.Int(summary.ItemCount)
	e.FieldStart("total")
	e.Float64(summary.Total.InexactFloat64())
	e.FieldStart("savings")
	e.Float64(summary.Savings.InexactFloat64())
	e.FieldStart("delivery_fee")
	e.Float64(summary.DeliveryFee.InexactFloat64())
	e.FieldStart("final_total")
	e.Float64(summary.FinalTotal.InexactFloat64())
	e.ObjEnd()

	e.FieldStart("valid")
	e.Bool(validation.OK)
	if !validation.OK {
		e.FieldStart("validation_reasons")
		e.ArrStart()
		for _, reason := range validation.Reasons {
			e.Str(reason)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}
