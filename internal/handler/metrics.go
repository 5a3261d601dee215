package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	m := h.metrics.Get(userID)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("user_id")
	e.Str(m.UserID)
	e.FieldStart("total_orders")
	e.Int(m.TotalOrders)
	e.FieldStart("total_spent")
	e.Float64(m.TotalSpent.InexactFloat64())
	e.FieldStart("total_savings")
	e.Float64(m.TotalSavings.InexactFloat64())
	e.FieldStart("average_order_value")
	e.Float64(m.AverageOrderValue.InexactFloat64())
	e.FieldStart("monthly_goal")
	e.Float64(m.MonthlyGoal.InexactFloat64())
	e.FieldStart("monthly_progress")
	e.Float64(m.MonthlyProgress.InexactFloat64())
	e.FieldStart("favorite_brand")
	e.Str(m.FavoriteBrand)

	e.FieldStart("top_products")
	e.ArrStart()
	for _, tp := range m.TopProducts {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(tp.Name)
		e.FieldStart("quantity")
		e.Int(tp.Quantity)
		e.FieldStart("revenue")
		e.Float64(tp.Revenue.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("recent_activity")
	e.ArrStart()
	for _, act := range m.RecentActivity {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Str(act.OrderID)
		e.FieldStart("description")
		e.Str(act.Description)
		e.FieldStart("total")
		e.Float64(act.Total.InexactFloat64())
		e.FieldStart("at")
		e.Str(act.At.Format(time.RFC3339))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
