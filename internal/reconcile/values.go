package reconcile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

var idKeys = []string{"_id", "id", "$oid"}

// ExtractTableID приводит ссылку на стол любой формы к строке:
// строка обрезается, число печатается, у объекта берётся _id/id.
// Для неизвестных форм возвращается пустая строка.
func ExtractTableID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return strings.TrimSpace(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any:
		for _, k := range idKeys {
			if id := ExtractTableID(x[k]); id != "" {
				return id
			}
		}
	}
	return ""
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64, json.Number, int, int64:
		return ExtractTableID(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asInt(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	case float64:
		if x > 0 && x < 1e15 {
			return time.UnixMilli(int64(x)).UTC(), true
		}
	}
	return time.Time{}, false
}

// first возвращает первое присутствующее значение из fields по списку ключей.
func first(fields map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(fields[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(fields map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := asFloat(fields[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// nested возвращает ссылку на вложенный объект-сущность или строковый идентификатор.
func nested(v any) (id string, obj map[string]any) {
	if m, ok := v.(map[string]any); ok {
		return ExtractTableID(m), m
	}
	return ExtractTableID(v), nil
}
