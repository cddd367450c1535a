package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

// ApiBill описывает счёт в том виде, в каком его отдаёт бэкенд.
type ApiBill map[string]any

// NormalizeBill приводит счёт бэкенда к model.Bill. Поля, которых нет в ответе,
// берутся из prev: бэкенд часто возвращает после изменения только часть счёта.
func NormalizeBill(a ApiBill, prev *model.Bill) model.Bill {
	var b model.Bill
	if prev != nil {
		b = *prev
		b.Items = append([]model.BillItem(nil), prev.Items...)
		b.Extras = append([]model.Extra(nil), prev.Extras...)
		b.Taxes = append([]model.Tax(nil), prev.Taxes...)
	}
	if a == nil {
		return b
	}

	if id := firstString(a, "_id", "id", "billId"); id != "" {
		b.ID = id
	}
	if s := firstString(a, "orderId"); s != "" {
		b.OrderID = s
	} else if id, _ := nested(a["order"]); id != "" {
		b.OrderID = id
	}
	if s := firstString(a, "tableId"); s != "" {
		b.TableID = s
	} else if id, _ := nested(a["table"]); id != "" {
		b.TableID = id
	} else if id, _ := nested(a["tableId"]); id != "" {
		b.TableID = id
	}
	if s := firstString(a, "sessionId"); s != "" {
		b.SessionID = s
	}

	if raw, ok := a["items"].([]any); ok {
		b.Items = normalizeBillItems(raw)
	}
	if raw, ok := a["extras"].([]any); ok {
		b.Extras = normalizeExtras(raw)
	}
	if raw, ok := a["taxes"].([]any); ok {
		b.Taxes = normalizeTaxes(raw)
	}

	if f, ok := firstFloat(a, "discountPercent", "discountPercentage"); ok {
		b.DiscountPercent = f
	}
	if f, ok := firstFloat(a, "discountAmount", "discount"); ok {
		b.DiscountAmount = f
	}
	if f, ok := firstFloat(a, "serviceChargePercent", "serviceChargePercentage"); ok {
		b.ServiceChargePercent = f
	}
	if f, ok := firstFloat(a, "serviceChargeAmount", "serviceCharge"); ok {
		b.ServiceChargeAmount = f
	}
	if f, ok := firstFloat(a, "subtotal", "subTotal"); ok {
		b.Subtotal = f
	}
	if f, ok := firstFloat(a, "total", "totalAmount", "grandTotal"); ok {
		b.Total = f
	}

	if s := firstString(a, "status"); s != "" {
		b.Status = model.BillStatus(s)
	}
	if s := firstString(a, "paymentStatus"); s != "" {
		b.PaymentStatus = model.PaymentStatus(s)
	} else if paid, ok := a["isPaid"].(bool); ok {
		b.PaymentStatus = model.PaymentStatusUnpaid
		if paid {
			b.PaymentStatus = model.PaymentStatusPaid
		}
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentStatusUnpaid
	}
	if b.Status == "" {
		b.Status = model.BillStatusDraft
	}

	if s := firstString(a, "staffAlias", "waiterName", "staffName"); s != "" {
		b.StaffAlias = s
	}
	if v, ok := first(a, "version", "__v"); ok {
		if n, ok := asInt(v); ok {
			b.Version = n
		}
	}
	if t, ok := asTime(a["updatedAt"]); ok {
		b.UpdatedAt = t
	}

	return b
}

func normalizeBillItems(raw []any) []model.BillItem {
	items := make([]model.BillItem, 0, len(raw))
	for _, oi := range normalizeOrderItems(raw) {
		items = append(items, model.BillItem{Name: oi.Name, Qty: oi.Qty, Price: oi.Price, Notes: oi.Notes})
	}
	return items
}

func normalizeExtras(raw []any) []model.Extra {
	extras := make([]model.Extra, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		amount, _ := firstFloat(m, "amount", "price", "value")
		if amount < 0 {
			continue
		}
		extras = append(extras, model.Extra{Name: firstString(m, "name", "label"), Amount: amount})
	}
	return extras
}

func normalizeTaxes(raw []any) []model.Tax {
	taxes := make([]model.Tax, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		rate, _ := firstFloat(m, "rate", "percent", "percentage")
		amount, _ := firstFloat(m, "amount")
		taxes = append(taxes, model.Tax{Name: firstString(m, "name", "label"), Rate: rate, Amount: amount})
	}
	return taxes
}

// DecodeBill разбирает ответ со счётом в любой обёртке, подставляя prev для пропущенных полей.
func DecodeBill(raw json.RawMessage, prev *model.Bill) (model.Bill, error) {
	a, err := apiclient.DecodeObject[ApiBill](raw)
	if err != nil {
		return model.Bill{}, fmt.Errorf("decode bill: %w", err)
	}
	if a == nil {
		return NormalizeBill(nil, prev), nil
	}
	return NormalizeBill(*a, prev), nil
}

// DecodeBills разбирает ответ со списком счетов.
func DecodeBills(raw json.RawMessage) ([]model.Bill, error) {
	list, err := apiclient.DecodeList[ApiBill](raw)
	if err != nil {
		return nil, fmt.Errorf("decode bills: %w", err)
	}
	bills := make([]model.Bill, 0, len(list))
	for _, a := range list {
		bills = append(bills, NormalizeBill(a, nil))
	}
	return bills, nil
}
