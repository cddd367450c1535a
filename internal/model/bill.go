package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus описывает статус счёта.
type BillStatus string

const (
	BillStatusDraft     BillStatus = "draft"
	BillStatusFinalized BillStatus = "finalized"
	BillStatusPaid      BillStatus = "paid"
)

// Editable сообщает, можно ли ещё менять позиции счёта.
func (s BillStatus) Editable() bool {
	return s == "" || s == BillStatusDraft
}

// BillItem описывает строку счёта.
type BillItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	Notes string  `json:"notes,omitempty"`
}

// Extra описывает положительную корректировку счёта.
type Extra struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Tax описывает налог: название, ставку в процентах и сумму.
type Tax struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Bill описывает счёт по заказу. Суммы, пришедшие с бэкенда, являются каноническими.
type Bill struct {
	ID                   string        `json:"id"`
	OrderID              string        `json:"orderId"`
	TableID              string        `json:"tableId,omitempty"`
	SessionID            string        `json:"sessionId,omitempty"`
	Items                []BillItem    `json:"items"`
	Extras               []Extra       `json:"extras"`
	Taxes                []Tax         `json:"taxes"`
	DiscountPercent      float64       `json:"discountPercent"`
	DiscountAmount       float64       `json:"discountAmount"`
	ServiceChargePercent float64       `json:"serviceChargePercent"`
	ServiceChargeAmount  float64       `json:"serviceChargeAmount"`
	Subtotal             float64       `json:"subtotal"`
	Total                float64       `json:"total"`
	Status               BillStatus    `json:"status"`
	PaymentStatus        PaymentStatus `json:"paymentStatus"`
	StaffAlias           string        `json:"staffAlias,omitempty"`
	Version              int64         `json:"version"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// BillTotals содержит предварительно вычисленные суммы счёта.
type BillTotals struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	ServiceChargeAmount decimal.Decimal `json:"serviceChargeAmount"`
	TaxTotal            decimal.Decimal `json:"taxTotal"`
	ExtrasTotal         decimal.Decimal `json:"extrasTotal"`
	Total               decimal.Decimal `json:"total"`
	Taxes               []Tax           `json:"taxes"`
}

var hundred = decimal.NewFromInt(100)

// Preview пересчитывает суммы счёта по его составляющим для мгновенного отображения.
// Каждая составляющая округляется до копеек, итог равен их сумме. Скидка не превышает
// сумму позиций.
func (b Bill) Preview() BillTotals {
	subtotal := decimal.Zero
	for _, it := range b.Items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	subtotal = subtotal.Round(2)

	discount := adjustment(subtotal, b.DiscountPercent, b.DiscountAmount)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	service := adjustment(subtotal, b.ServiceChargePercent, b.ServiceChargeAmount)

	taxBase := subtotal.Sub(discount)
	taxes := make([]Tax, 0, len(b.Taxes))
	taxTotal := decimal.Zero
	for _, t := range b.Taxes {
		amount := taxBase.Mul(decimal.NewFromFloat(t.Rate)).Div(hundred).Round(2)
		taxTotal = taxTotal.Add(amount)
		taxes = append(taxes, Tax{Name: t.Name, Rate: t.Rate, Amount: amount.InexactFloat64()})
	}

	extras := decimal.Zero
	for _, e := range b.Extras {
		extras = extras.Add(decimal.NewFromFloat(e.Amount).Round(2))
	}

	return BillTotals{
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		ServiceChargeAmount: service,
		TaxTotal:            taxTotal,
		ExtrasTotal:         extras,
		Total:               subtotal.Sub(discount).Add(service).Add(taxTotal).Add(extras),
		Taxes:               taxes,
	}
}

// adjustment вычисляет скидку или сервисный сбор: процент от base, а без процента
// фиксированную сумму счёта.
func adjustment(base decimal.Decimal, percent, amount float64) decimal.Decimal {
	switch {
	case percent > 0:
		return base.Mul(decimal.NewFromFloat(percent)).Div(hundred).Round(2)
	case amount > 0:
		return decimal.NewFromFloat(amount).Round(2)
	}
	return decimal.Zero
}

// BillPatch описывает изменения черновика счёта. Nil-поля не отправляются.
type BillPatch struct {
	Items                *[]BillItem `json:"items,omitempty"`
	Extras               *[]Extra    `json:"extras,omitempty"`
	DiscountPercent      *float64    `json:"discountPercent,omitempty"`
	ServiceChargePercent *float64    `json:"serviceChargePercent,omitempty"`
	StaffAlias           *string     `json:"staffAlias,omitempty"`
	Status               *BillStatus `json:"status,omitempty"`
	Version              int64       `json:"version"`
}
