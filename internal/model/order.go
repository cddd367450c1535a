// Package model содержит транспортные сущности, получаемые от удалённого бэкенда ресторана.
package model

import "time"

// OrderStatus описывает статус заказа. Переходы выполняет только бэкенд.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusDone      OrderStatus = "done"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// PaymentStatus описывает статус оплаты заказа или счёта.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:    {OrderStatusAccepted, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusAccepted:  {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusServed, OrderStatusCancelled},
	OrderStatusServed:    {OrderStatusDone},
	OrderStatusDone:      {OrderStatusClosed},
}

// Transitions возвращает статусы, кнопки перехода в которые имеет смысл показывать.
// Бэкенд остаётся единственным арбитром допустимости перехода.
func (s OrderStatus) Transitions() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// Active сообщает, находится ли заказ в работе.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderStatusDone, OrderStatusClosed, OrderStatusCancelled, OrderStatusRejected:
		return false
	}
	return true
}

// Known сообщает, является ли статус одним из известных.
func (s OrderStatus) Known() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady,
		OrderStatusServed, OrderStatusDone, OrderStatusClosed, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	MenuItemID string  `json:"menuItemId,omitempty"`
	Name       string  `json:"name"`
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes,omitempty"`
	Status     string  `json:"status,omitempty"`
}

// Order описывает заказ в нормализованном виде.
type Order struct {
	ID            string        `json:"id"`
	TableID       string        `json:"tableId,omitempty"`
	TableNumber   string        `json:"tableNumber,omitempty"`
	TableRef      string        `json:"tableRef,omitempty"`
	SessionID     string        `json:"sessionId,omitempty"`
	BillID        string        `json:"billId,omitempty"`
	Items         []OrderItem   `json:"items"`
	Amount        float64       `json:"amount"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	StaffAlias    string        `json:"staffAlias,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// TableKeys возвращает все непустые ссылки заказа на стол.
func (o Order) TableKeys() []string {
	keys := make([]string, 0, 3)
	for _, k := range []string{o.TableID, o.TableRef, o.TableNumber} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// OrderAction описывает доступное действие над заказом для отображения.
type OrderAction struct {
	OrderID string        `json:"orderId"`
	Next    []OrderStatus `json:"next"`
}
