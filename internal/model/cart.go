package model

import "time"

// CartItem описывает позицию корзины посетителя.
type CartItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes,omitempty"`
}

// Cart описывает корзину посетителя, сохраняемую между визитами страницы.
type Cart struct {
	ID          string     `json:"id"`
	TableNumber string     `json:"tableNumber"`
	Items       []CartItem `json:"items"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Total возвращает сумму корзины.
func (c Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += float64(it.Qty) * it.Price
	}
	return sum
}

// OrderItems преобразует корзину в позиции заказа.
func (c Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, OrderItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Qty:        it.Qty,
			Price:      it.Price,
			Notes:      it.Notes,
		})
	}
	return items
}
