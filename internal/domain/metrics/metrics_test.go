package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grosnack/grosnack/internal/domain/order"
)

// --- Mock implementations ---

type mockHistory struct {
	orders []order.Order
	err    error
}

func (m *mockHistory) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func placedOrder(id, userID string, total, savings string, createdAt time.Time, items ...order.Item) order.Order {
	return order.Order{
		ID:        id,
		UserID:    userID,
		CreatedAt: createdAt,
		Status:    order.StatusPending,
		Items:     items,
		Total:     dec(total),
		Savings:   dec(savings),
	}
}

func item(name, brand string, qty int, subtotal string) order.Item {
	return order.Item{
		ProductID: name,
		Name:      name,
		Brand:     brand,
		Quantity:  qty,
		Subtotal:  dec(subtotal),
	}
}

// --- Tests ---

func TestGet_NewUserIsZeroValuedWithoutSideEffect(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)

	m := a.Get("user-1")
	assert.Equal(t, 0, m.TotalOrders)
	assert.True(t, m.TotalSpent.IsZero())
	assert.True(t, m.MonthlyProgress.IsZero())
	assert.True(t, dec("500.00").Equal(m.MonthlyGoal))

	// Reading must not have created state.
	a.mu.Lock()
	_, exists := a.users["user-1"]
	a.mu.Unlock()
	assert.False(t, exists)
}

func TestRecordOrder_IncrementalTotals(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)
	now := time.Now().UTC()

	o1 := placedOrder("o1", "u1", "30.00", "4.00", now, item("Salted Chips", "Crunchy Co", 5, "30.00"))
	o2 := placedOrder("o2", "u1", "10.00", "1.00", now, item("Choco Bites", "Sweet Ltd", 2, "10.00"))
	a.RecordOrder(&o1)
	a.RecordOrder(&o2)

	m := a.Get("u1")
	assert.Equal(t, 2, m.TotalOrders)
	assert.True(t, dec("40.00").Equal(m.TotalSpent))
	assert.True(t, dec("5.00").Equal(m.TotalSavings))
	assert.True(t, dec("20.00").Equal(m.AverageOrderValue))
	assert.True(t, dec("40.00").Equal(m.MonthlyProgress))
}

func TestRecordOrder_TopProductsRankedByRevenue(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)
	now := time.Now().UTC()

	o := placedOrder("o1", "u1", "100.00", "0.00", now,
		item("A", "b1", 1, "10.00"),
		item("B", "b1", 1, "40.00"),
		item("C", "b2", 1, "20.00"),
		item("D", "b2", 1, "30.00"),
	)
	a.RecordOrder(&o)

	m := a.Get("u1")
	require.Len(t, m.TopProducts, 3)
	assert.Equal(t, "B", m.TopProducts[0].Name)
	assert.Equal(t, "D", m.TopProducts[1].Name)
	assert.Equal(t, "C", m.TopProducts[2].Name)
}

func TestRecordOrder_FavoriteBrandByQuantity(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)
	now := time.Now().UTC()

	o := placedOrder("o1", "u1", "50.00", "0.00", now,
		item("A", "Crunchy Co", 2, "10.00"),
		item("B", "Sweet Ltd", 7, "40.00"),
	)
	a.RecordOrder(&o)

	assert.Equal(t, "Sweet Ltd", a.Get("u1").FavoriteBrand)
}

func TestRecordOrder_ActivityBoundedMostRecentFirst(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)
	base := time.Now().UTC()

	for i := range 12 {
		o := placedOrder("o"+string(rune('a'+i)), "u1", "1.00", "0.00", base.Add(time.Duration(i)*time.Minute),
			item("A", "b", 1, "1.00"))
		a.RecordOrder(&o)
	}

	m := a.Get("u1")
	require.Len(t, m.RecentActivity, 10)
	assert.Equal(t, "o"+string(rune('a'+11)), m.RecentActivity[0].OrderID)
	assert.Equal(t, "o"+string(rune('a'+2)), m.RecentActivity[9].OrderID)
}

func TestRebuild_ExcludesCancelledOrders(t *testing.T) {
	now := time.Now().UTC()
	kept := placedOrder("o1", "u1", "30.00", "3.00", now, item("A", "b", 3, "30.00"))
	cancelled := placedOrder("o2", "u1", "99.00", "9.00", now, item("B", "b", 9, "99.00"))
	cancelled.Status = order.StatusCancelled

	history := &mockHistory{orders: []order.Order{kept, cancelled}}
	a := NewAggregator(dec("500.00"), history, nil)

	// Incremental view recorded both before the cancellation happened.
	a.RecordOrder(&kept)
	a.RecordOrder(&cancelled)
	require.Equal(t, 2, a.Get("u1").TotalOrders)

	require.NoError(t, a.Rebuild(context.Background(), "u1"))

	m := a.Get("u1")
	assert.Equal(t, 1, m.TotalOrders)
	assert.True(t, dec("30.00").Equal(m.TotalSpent))
	assert.True(t, dec("3.00").Equal(m.TotalSavings))
	require.Len(t, m.RecentActivity, 1)
	assert.Equal(t, "o1", m.RecentActivity[0].OrderID)
}

func TestRebuild_MonthlyProgressOnlyCurrentMonth(t *testing.T) {
	now := time.Now().UTC()
	lastMonth := now.AddDate(0, -1, 0)

	history := &mockHistory{orders: []order.Order{
		placedOrder("o1", "u1", "20.00", "0.00", now, item("A", "b", 1, "20.00")),
		placedOrder("o2", "u1", "50.00", "0.00", lastMonth, item("A", "b", 1, "50.00")),
	}}
	a := NewAggregator(dec("500.00"), history, nil)

	require.NoError(t, a.Rebuild(context.Background(), "u1"))

	m := a.Get("u1")
	assert.True(t, dec("70.00").Equal(m.TotalSpent))
	assert.True(t, dec("20.00").Equal(m.MonthlyProgress))
}

func TestReset_DropsState(t *testing.T) {
	a := NewAggregator(dec("500.00"), &mockHistory{}, nil)
	now := time.Now().UTC()
	o := placedOrder("o1", "u1", "10.00", "0.00", now, item("A", "b", 1, "10.00"))
	a.RecordOrder(&o)

	a.Reset("u1")
	assert.Equal(t, 0, a.Get("u1").TotalOrders)
}
