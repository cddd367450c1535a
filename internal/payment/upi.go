// Package payment строит ссылки оплаты по UPI и ссылки на заказ со стола.
package payment

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured возвращается, если не задан UPI-идентификатор получателя.
	ErrNotConfigured = errors.New("upi payee is not configured")
	// ErrInvalidAmount возвращается для неположительной суммы.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// UPI хранит реквизиты получателя.
type UPI struct {
	PayeeID   string
	PayeeName string
}

// Link возвращает ссылку upi://pay на сумму amount с комментарием note.
func (u UPI) Link(amount decimal.Decimal, note string) (string, error) {
	if u.PayeeID == "" {
		return "", ErrNotConfigured
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	params := [][2]string{
		{"pa", u.PayeeID},
		{"pn", u.PayeeName},
		{"am", amount.StringFixed(2)},
		{"cu", "INR"},
		{"tn", note},
	}
	var sb strings.Builder
	sb.WriteString("upi://pay?")
	n := 0
	for _, p := range params {
		if p[1] == "" {
			continue
		}
		if n > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p[0])
		sb.WriteByte('=')
		sb.WriteString(escape(p[1]))
		n++
	}
	return sb.String(), nil
}

// UPI-приложения не понимают '+' вместо пробела.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// PlaceOrderLink добавляет номер стола к ссылке на страницу заказа.
func PlaceOrderLink(base, tableNumber string) (string, error) {
	if base == "" {
		return "", errors.New("place order link is not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse place order link: %w", err)
	}
	q := u.Query()
	q.Set("table", tableNumber)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
