// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mmeshcher/tableside/internal/model"
)

const (
	maxCartItems = 100
	maxItemQty   = 99
)

// ErrEmptyCart возвращается при оформлении пустой корзины.
var ErrEmptyCart = errors.New("cart is empty")

// IsValidPIN проверяет PIN официанта: от 4 до 6 цифр.
func IsValidPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, ch := range pin {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// IsValidTableNumber проверяет номер стола: непустой, без пробелов по краям и управляющих символов.
func IsValidTableNumber(number string) bool {
	if number == "" || strings.TrimSpace(number) != number || len(number) > 16 {
		return false
	}
	for _, ch := range number {
		if unicode.IsControl(ch) {
			return false
		}
	}
	return true
}

// ValidateCart проверяет корзину перед сохранением.
func ValidateCart(c model.Cart) error {
	if c.TableNumber != "" && !IsValidTableNumber(c.TableNumber) {
		return fmt.Errorf("invalid table number %q", c.TableNumber)
	}
	if len(c.Items) > maxCartItems {
		return fmt.Errorf("cart has %d items, at most %d allowed", len(c.Items), maxCartItems)
	}
	for i, it := range c.Items {
		if it.MenuItemID == "" && it.Name == "" {
			return fmt.Errorf("item %d: menu item is required", i)
		}
		if it.Qty < 1 || it.Qty > maxItemQty {
			return fmt.Errorf("item %d: quantity must be between 1 and %d", i, maxItemQty)
		}
		if it.Price < 0 {
			return fmt.Errorf("item %d: price must not be negative", i)
		}
	}
	return nil
}

// ValidateCheckout проверяет, что корзину можно превратить в заказ.
func ValidateCheckout(c model.Cart) error {
	if len(c.Items) == 0 {
		return ErrEmptyCart
	}
	if !IsValidTableNumber(c.TableNumber) {
		return fmt.Errorf("invalid table number %q", c.TableNumber)
	}
	return ValidateCart(c)
}
