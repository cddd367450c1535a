package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   []OrderStatus
	}{
		{name: "placed", status: OrderStatusPlaced, want: []OrderStatus{OrderStatusAccepted, OrderStatusRejected, OrderStatusCancelled}},
		{name: "preparing", status: OrderStatusPreparing, want: []OrderStatus{OrderStatusReady, OrderStatusCancelled}},
		{name: "served", status: OrderStatusServed, want: []OrderStatus{OrderStatusDone}},
		{name: "closed is terminal", status: OrderStatusClosed, want: []OrderStatus{}},
		{name: "unknown", status: OrderStatus("weird"), want: []OrderStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Transitions())
		})
	}
}

func TestOrderStatusTransitions_ReturnsCopy(t *testing.T) {
	next := OrderStatusPlaced.Transitions()
	next[0] = OrderStatusClosed
	assert.Equal(t, OrderStatusAccepted, OrderStatusPlaced.Transitions()[0])
}

func TestOrderStatusActive(t *testing.T) {
	assert.True(t, OrderStatusReady.Active())
	assert.False(t, OrderStatusCancelled.Active())
	assert.False(t, OrderStatusClosed.Active())
}

func TestOrderTableKeys(t *testing.T) {
	o := Order{TableID: "T1", TableNumber: "5"}
	assert.Equal(t, []string{"T1", "5"}, o.TableKeys())
	assert.Empty(t, Order{}.TableKeys())
}

func TestCartOrderItems(t *testing.T) {
	c := Cart{Items: []CartItem{{MenuItemID: "m1", Name: "Dosa", Qty: 2, Price: 90.5}}}
	assert.Equal(t, 181.0, c.Total())
	assert.Equal(t, []OrderItem{{MenuItemID: "m1", Name: "Dosa", Qty: 2, Price: 90.5}}, c.OrderItems())
}
