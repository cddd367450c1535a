// Package reconcile нормализует разнородные ответы бэкенда и сопоставляет заказы со столами.
package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

// ApiOrder описывает заказ в том виде, в каком его отдаёт бэкенд. Известные ключи:
// _id/id, tableId (строка, число, объект с _id или null), table, tableNumber,
// sessionId, billId/bill, items, totalAmount/amount/total, status,
// paymentStatus/isPaid, staffAlias/waiterName/assignedTo, version/__v,
// createdAt, updatedAt.
type ApiOrder map[string]any

// ApiTable описывает стол в том виде, в каком его отдаёт бэкенд.
type ApiTable map[string]any

// NormalizeOrder приводит заказ бэкенда к model.Order. Не паникует ни на какой
// комбинации присутствующих и отсутствующих полей.
func NormalizeOrder(a ApiOrder) model.Order {
	return MergeOrder(a, nil)
}

// MergeOrder нормализует заказ, подставляя значения prev для полей, которых нет в ответе.
func MergeOrder(a ApiOrder, prev *model.Order) model.Order {
	var o model.Order
	if prev != nil {
		o = *prev
		o.Items = append([]model.OrderItem(nil), prev.Items...)
	}
	if a == nil {
		return o
	}

	if id := firstString(a, "_id", "id", "orderId"); id != "" {
		o.ID = id
	}

	if v, ok := a["tableId"]; ok {
		id, obj := nested(v)
		o.TableID = id
		if n := firstString(obj, "tableNumber", "number"); n != "" {
			o.TableNumber = n
		}
	}
	if v, ok := a["table"]; ok {
		id, obj := nested(v)
		o.TableRef = id
		if n := firstString(obj, "tableNumber", "number"); n != "" {
			o.TableNumber = n
		}
	}
	if n := firstString(a, "tableNumber"); n != "" {
		o.TableNumber = n
	}

	if s := firstString(a, "sessionId"); s != "" {
		o.SessionID = s
	} else if id, _ := nested(a["session"]); id != "" {
		o.SessionID = id
	}

	if s := firstString(a, "billId"); s != "" {
		o.BillID = s
	} else if id, _ := nested(a["bill"]); id != "" {
		o.BillID = id
	}

	if raw, ok := a["items"].([]any); ok {
		o.Items = normalizeOrderItems(raw)
	}

	if amount, ok := firstFloat(a, "totalAmount", "amount", "total"); ok {
		o.Amount = amount
	} else if o.Amount == 0 {
		o.Amount = itemsTotal(o.Items)
	}

	if s := firstString(a, "status"); s != "" {
		o.Status = model.OrderStatus(s)
	}
	if s := firstString(a, "paymentStatus"); s != "" {
		o.PaymentStatus = model.PaymentStatus(s)
	} else if paid, ok := a["isPaid"].(bool); ok {
		o.PaymentStatus = model.PaymentStatusUnpaid
		if paid {
			o.PaymentStatus = model.PaymentStatusPaid
		}
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.PaymentStatusUnpaid
	}

	if s := firstString(a, "staffAlias", "waiterName", "staffName"); s != "" {
		o.StaffAlias = s
	} else if v, ok := a["assignedTo"]; ok {
		if m, isObj := v.(map[string]any); isObj {
			o.StaffAlias = firstString(m, "name", "alias")
		} else {
			o.StaffAlias = asString(v)
		}
	}

	if v, ok := first(a, "version", "__v"); ok {
		if n, ok := asInt(v); ok {
			o.Version = n
		}
	}
	if t, ok := asTime(a["createdAt"]); ok {
		o.CreatedAt = t
	}
	if t, ok := asTime(a["updatedAt"]); ok {
		o.UpdatedAt = t
	}

	return o
}

func normalizeOrderItems(raw []any) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		it := model.OrderItem{
			Name:   firstString(m, "name", "itemName", "title"),
			Notes:  firstString(m, "notes", "note", "instructions"),
			Status: firstString(m, "status"),
			Qty:    1,
		}
		menuID, menu := nested(m["menuItem"])
		it.MenuItemID = firstString(m, "menuItemId", "itemId")
		if it.MenuItemID == "" {
			it.MenuItemID = menuID
		}
		if it.Name == "" {
			it.Name = firstString(menu, "name")
		}
		if q, ok := first(m, "qty", "quantity"); ok {
			if n, ok := asInt(q); ok {
				it.Qty = int(n)
			}
		}
		if p, ok := firstFloat(m, "price", "unitPrice"); ok {
			it.Price = p
		} else if p, ok := firstFloat(menu, "price"); ok {
			it.Price = p
		}
		items = append(items, it)
	}
	return items
}

func itemsTotal(items []model.OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += float64(it.Qty) * it.Price
	}
	return sum
}

// NormalizeTable приводит стол бэкенда к model.Table.
func NormalizeTable(a ApiTable) model.Table {
	t := model.Table{
		ID:     firstString(a, "_id", "id"),
		Number: firstString(a, "tableNumber", "number", "name"),
		Active: true,
	}
	if c, ok := first(a, "capacity", "seats"); ok {
		if n, ok := asInt(c); ok {
			t.Capacity = int(n)
		}
	}
	for _, k := range []string{"isActive", "active"} {
		if b, ok := a[k].(bool); ok {
			t.Active = b
			break
		}
	}
	if s := firstString(a, "currentSessionId"); s != "" {
		t.SessionID = s
	} else if id, _ := nested(a["currentSession"]); id != "" {
		t.SessionID = id
	}
	return t
}

// DecodeOrders разбирает ответ со списком заказов в любой обёртке.
func DecodeOrders(raw json.RawMessage) ([]model.Order, error) {
	list, err := apiclient.DecodeList[ApiOrder](raw)
	if err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]model.Order, 0, len(list))
	for _, a := range list {
		orders = append(orders, NormalizeOrder(a))
	}
	return orders, nil
}

// DecodeOrder разбирает ответ с одним заказом, подставляя prev для пропущенных полей.
func DecodeOrder(raw json.RawMessage, prev *model.Order) (model.Order, error) {
	a, err := apiclient.DecodeObject[ApiOrder](raw)
	if err != nil {
		return model.Order{}, fmt.Errorf("decode order: %w", err)
	}
	if a == nil {
		return MergeOrder(nil, prev), nil
	}
	return MergeOrder(*a, prev), nil
}

// DecodeTables разбирает ответ со списком столов в любой обёртке.
func DecodeTables(raw json.RawMessage) ([]model.Table, error) {
	list, err := apiclient.DecodeList[ApiTable](raw)
	if err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	tables := make([]model.Table, 0, len(list))
	for _, a := range list {
		tables = append(tables, NormalizeTable(a))
	}
	return tables, nil
}
