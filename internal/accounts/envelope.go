// envelope.go — разбор конверта ответа списка учётных записей.
// Remote Account Source возвращает список в нескольких формах; неизвестная форма
// даёт пустой результат, а не ошибку.
package accounts

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Псевдонимы полей конверта.
var (
	itemsKeys = []string{"items", "Items"}
	totalKeys = []string{"total", "Total", "totalCount", "TotalCount"}
	dataKeys  = []string{"data", "Data"}
)

// DecodeList извлекает записи и общее количество из тела ответа.
// Порядок попыток: массив; {items,total}; {Items,Total}; {data:{items,total}};
// {Data:{Items,Total}}; {data:[...], total}.
// Если total отсутствует — возвращается количество записей.
// Неизвестная форма → (nil, 0).
func DecodeList(body []byte) ([]map[string]any, int) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, 0
	}

	var root any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, 0
	}

	items, total, ok := fromValue(root)
	if !ok {
		return nil, 0
	}
	if total < 0 {
		total = len(items)
	}
	return items, total
}

// fromValue разбирает одно значение JSON. total = -1, если не найден.
func fromValue(v any) ([]map[string]any, int, bool) {
	switch t := v.(type) {
	case []any:
		return records(t), -1, true
	case map[string]any:
		if items, ok := lookupArray(t, itemsKeys); ok {
			return records(items), lookupInt(t, totalKeys), true
		}
		for _, k := range dataKeys {
			inner, present := t[k]
			if !present {
				continue
			}
			items, total, ok := fromValue(inner)
			if !ok {
				continue
			}
			if total < 0 {
				total = lookupInt(t, totalKeys)
			}
			return items, total, true
		}
	}
	return nil, -1, false
}

// records оставляет из массива только объекты.
func records(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func lookupArray(m map[string]any, keys []string) ([]any, bool) {
	for _, k := range keys {
		if arr, ok := m[k].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func lookupInt(m map[string]any, keys []string) int {
	for _, k := range keys {
		switch t := m[k].(type) {
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return int(n)
			}
			if f, err := t.Float64(); err == nil {
				return int(f)
			}
		case float64:
			return int(t)
		}
	}
	return -1
}

// DecodeRoles извлекает имена ролей из ответа списка ролей.
// Поддерживает массив строк, массив объектов {name|roleName} и конверты items/data.
func DecodeRoles(body []byte) []string {
	list, _ := DecodeList(body)

	var roles []string
	if len(list) > 0 {
		for _, r := range list {
			if s := stringField(r, slices.Concat(nameKeys, roleKeys)); s != "" {
				roles = append(roles, s)
			}
		}
		return roles
	}

	// Массив строк (DecodeList отбрасывает не-объекты)
	var plain []any
	if err := json.Unmarshal(body, &plain); err == nil {
		for _, v := range plain {
			if s := scalarString(v); s != "" {
				roles = append(roles, s)
			}
		}
		return roles
	}

	var env map[string]any
	if err := json.Unmarshal(body, &env); err == nil {
		for _, k := range slices.Concat(itemsKeys, dataKeys) {
			if arr, ok := env[k].([]any); ok {
				for _, v := range arr {
					if s := scalarString(v); s != "" {
						roles = append(roles, s)
					}
				}
				return roles
			}
		}
	}
	return roles
}
