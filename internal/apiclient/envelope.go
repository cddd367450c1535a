package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape описывает форму полезной нагрузки ответа после снятия обёрток.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeArray
	ShapeObject
	ShapeScalar
)

// Envelope описывает результат нормализации ответа бэкенда, который возвращает
// то голый массив, то объект с data/orders/result и прочими обёртками.
type Envelope struct {
	Shape  Shape
	Items  []json.RawMessage
	Object json.RawMessage
}

var wrapperKeys = []string{"data", "result", "orders", "bills", "tables", "waiters", "staff"}

// Ключи-сущности в единственном числе встречаются и как обёртка ответа, и как вложенная
// ссылка внутри другой сущности. Обёрткой они считаются, только если рядом лишь метаданные.
var singularKeys = []string{"bill", "order", "table", "item", "category"}

var metadataKeys = map[string]struct{}{
	"success": {}, "message": {}, "ok": {}, "meta": {}, "error": {}, "code": {},
}

const maxUnwrapDepth = 4

// Unwrap снимает известные обёртки и классифицирует полезную нагрузку.
func Unwrap(raw json.RawMessage) Envelope {
	return unwrap(raw, 0)
}

func unwrap(raw json.RawMessage, depth int) Envelope {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Envelope{Shape: ShapeEmpty}
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Envelope{Shape: ShapeEmpty}
		}
		return Envelope{Shape: ShapeArray, Items: items}
	case '{':
		if depth >= maxUnwrapDepth {
			return Envelope{Shape: ShapeObject, Object: raw}
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Envelope{Shape: ShapeEmpty}
		}
		// Объект с собственным идентификатором является сущностью, а не обёрткой.
		if hasIdentity(fields) {
			return Envelope{Shape: ShapeObject, Object: raw}
		}
		for _, key := range wrapperKeys {
			inner, ok := fields[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if bytes.Equal(inner, []byte("null")) {
				return Envelope{Shape: ShapeEmpty}
			}
			if len(inner) == 0 || (inner[0] != '[' && inner[0] != '{') {
				continue
			}
			return unwrap(inner, depth+1)
		}
		for _, key := range singularKeys {
			inner, ok := fields[key]
			if !ok || !onlyMetadataBesides(fields, key) {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if bytes.Equal(inner, []byte("null")) {
				return Envelope{Shape: ShapeEmpty}
			}
			if len(inner) == 0 || (inner[0] != '[' && inner[0] != '{') {
				continue
			}
			return unwrap(inner, depth+1)
		}
		// Ответ из одних метаданных ("success", "message") не несёт сущности.
		if onlyMetadataBesides(fields, "") {
			return Envelope{Shape: ShapeEmpty}
		}
		return Envelope{Shape: ShapeObject, Object: raw}
	}

	return Envelope{Shape: ShapeScalar, Object: raw}
}

func onlyMetadataBesides(fields map[string]json.RawMessage, key string) bool {
	for k := range fields {
		if k == key {
			continue
		}
		if _, ok := metadataKeys[k]; !ok {
			return false
		}
	}
	return true
}

func hasIdentity(fields map[string]json.RawMessage) bool {
	_, id := fields["id"]
	_, oid := fields["_id"]
	return id || oid
}

// DecodeList декодирует ответ в список независимо от обёртки.
// Одиночный объект превращается в список из одного элемента.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	env := Unwrap(raw)

	switch env.Shape {
	case ShapeEmpty:
		return []T{}, nil
	case ShapeObject:
		env.Items = []json.RawMessage{env.Object}
	case ShapeScalar:
		return nil, fmt.Errorf("decode list: unexpected scalar payload")
	}

	out := make([]T, 0, len(env.Items))
	for i, item := range env.Items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode list item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeObject декодирует ответ в одиночный объект независимо от обёртки.
func DecodeObject[T any](raw json.RawMessage) (*T, error) {
	env := Unwrap(raw)

	var payload json.RawMessage
	switch env.Shape {
	case ShapeObject:
		payload = env.Object
	case ShapeArray:
		if len(env.Items) == 0 {
			return nil, nil
		}
		payload = env.Items[0]
	case ShapeEmpty:
		return nil, nil
	default:
		return nil, fmt.Errorf("decode object: unexpected scalar payload")
	}

	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return &v, nil
}
