package reconcile

import (
	"strings"

	"github.com/mmeshcher/tableside/internal/model"
)

// MergeOrdersIntoTables вычисляет занятость столов по активным заказам.
// Стол занят, если хотя бы один заказ ссылается на его идентификатор или номер
// любым из полей tableId, table или tableNumber. Все ключи сравниваются как строки.
// Заказ без совпадений не занимает ни одного стола.
func MergeOrdersIntoTables(tables []model.Table, orders []model.Order) []model.TableView {
	views := make([]model.TableView, 0, len(tables))
	for _, t := range tables {
		v := model.TableView{Table: t, Orders: []model.Order{}}
		for _, o := range orders {
			if Matches(t, o) {
				v.Orders = append(v.Orders, o)
			}
		}
		v.Occupied = len(v.Orders) > 0
		views = append(views, v)
	}
	return views
}

// Matches сообщает, относится ли заказ к столу.
func Matches(t model.Table, o model.Order) bool {
	tableKeys := make([]string, 0, 2)
	for _, k := range []string{t.ID, t.Number} {
		if k = normalizeKey(k); k != "" {
			tableKeys = append(tableKeys, k)
		}
	}

	for _, ok := range o.TableKeys() {
		ok = normalizeKey(ok)
		if ok == "" {
			continue
		}
		for _, tk := range tableKeys {
			if ok == tk {
				return true
			}
		}
	}
	return false
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
