package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/reconcile"
)

// ActiveOrders возвращает заказы в работе.
func (a *API) ActiveOrders(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/orders/active"})
	if err != nil {
		return nil, fmt.Errorf("get active orders: %w", err)
	}
	return reconcile.DecodeOrders(raw)
}

// OrderHistory возвращает завершённые заказы.
func (a *API) OrderHistory(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/orders/history"})
	if err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	return reconcile.DecodeOrders(raw)
}

// NewOrder описывает заказ, создаваемый посетителем или персоналом.
type NewOrder struct {
	TableNumber  string            `json:"tableNumber"`
	Items        []model.OrderItem `json:"items"`
	CustomerName string            `json:"customerName,omitempty"`
	Notes        string            `json:"notes,omitempty"`
}

// PlaceOrder создаёт заказ. Запрос снабжается ключом идемпотентности.
func (a *API) PlaceOrder(ctx context.Context, sess *apiclient.Session, o NewOrder) (model.Order, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{
		Method:      http.MethodPost,
		Path:        "/orders",
		Body:        o,
		Idempotency: true,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}
	return reconcile.DecodeOrder(raw, &model.Order{
		TableNumber: o.TableNumber,
		Items:       o.Items,
		Status:      model.OrderStatusPlaced,
	})
}

type statusRequest struct {
	Status  model.OrderStatus `json:"status"`
	Version int64             `json:"version"`
}

// UpdateOrderStatus запрашивает перевод заказа в статус status. prev передаёт известную
// версию и служит источником полей, которых нет в ответе.
func (a *API) UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, prev model.Order, status model.OrderStatus) (model.Order, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/orders/" + url.PathEscape(prev.ID) + "/status",
		Body:   statusRequest{Status: status, Version: prev.Version},
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}

	next := prev
	next.Status = status
	return reconcile.DecodeOrder(raw, &next)
}

// OrderBill возвращает счёт заказа, создавая черновик на стороне бэкенда при необходимости.
func (a *API) OrderBill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/orders/" + url.PathEscape(orderID) + "/bill"})
	if err != nil {
		return model.Bill{}, fmt.Errorf("get order bill: %w", err)
	}
	return reconcile.DecodeBill(raw, &model.Bill{OrderID: orderID})
}
