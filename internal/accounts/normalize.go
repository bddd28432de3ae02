// Пакет accounts — граница чтения данных Remote Account Source.
// Сводит разнородные имена полей (fullName / FullName / firstName+lastName, ...)
// к каноническому model.Account. За пределами пакета варианты имён полей не встречаются.
package accounts

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// Псевдонимы полей сырой записи в порядке приоритета.
var (
	idKeys        = []string{"id", "Id", "ID", "accountId", "AccountId", "userId", "UserId"}
	emailKeys     = []string{"email", "Email"}
	fullNameKeys  = []string{"fullName", "FullName", "full_name", "fullname"}
	nameKeys      = []string{"name", "Name"}
	firstNameKeys = []string{"firstName", "FirstName", "first_name"}
	lastNameKeys  = []string{"lastName", "LastName", "last_name"}
	phoneKeys     = []string{"phone", "Phone", "phoneNumber", "PhoneNumber", "phone_number"}
	rolesKeys     = []string{"roles", "Roles"}
	roleKeys      = []string{"role", "Role", "roleName", "RoleName"}
	activeKeys    = []string{"isActive", "IsActive", "active", "Active"}
	statusKeys    = []string{"status", "Status"}
)

// Normalize формирует model.Account из сырой записи.
// Исходная map не изменяется и сохраняется в Account.Raw.
func Normalize(raw map[string]any) model.Account {
	acc := model.Account{
		ID:       stringField(raw, idKeys),
		Email:    stringField(raw, emailKeys),
		FullName: DisplayName(raw),
		Phone:    stringField(raw, phoneKeys),
		Roles:    roleSet(raw),
		IsActive: activeFlag(raw),
		Raw:      raw,
	}
	acc.SortKey = KeyOf(acc.FullName)
	return acc
}

// NormalizeAll нормализует срез сырых записей.
func NormalizeAll(raws []map[string]any) []model.Account {
	out := make([]model.Account, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

// DisplayName определяет отображаемое имя:
// явное полное имя → name → firstName + lastName.
func DisplayName(raw map[string]any) string {
	if s := stringField(raw, fullNameKeys); s != "" {
		return s
	}
	if s := stringField(raw, nameKeys); s != "" {
		return s
	}
	first := stringField(raw, firstNameKeys)
	last := stringField(raw, lastNameKeys)
	return strings.TrimSpace(first + " " + last)
}

// stringField возвращает первое непустое строковое значение по списку ключей.
func stringField(raw map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// scalarString приводит скаляр JSON к строке.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// roleSet собирает множество ролей из массива (строки или объекты {name|roleName})
// либо из скалярного поля role.
func roleSet(raw map[string]any) []string {
	var roles []string

	for _, k := range rolesKeys {
		if strs, ok := raw[k].([]string); ok {
			roles = append(roles, strs...)
			break
		}
		list, ok := raw[k].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			switch t := item.(type) {
			case map[string]any:
				if s := stringField(t, slices.Concat(nameKeys, roleKeys)); s != "" {
					roles = append(roles, s)
				}
			default:
				if s := scalarString(t); s != "" {
					roles = append(roles, s)
				}
			}
		}
		break
	}

	if len(roles) == 0 {
		if s := stringField(raw, roleKeys); s != "" {
			roles = append(roles, s)
		}
	}

	slices.Sort(roles)
	return slices.Compact(roles)
}

// activeFlag определяет признак активности: булево поле или строковый статус.
func activeFlag(raw map[string]any) bool {
	for _, k := range activeKeys {
		switch t := raw[k].(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b
			}
		case json.Number:
			return t.String() != "0"
		case float64:
			return t != 0
		}
	}
	status := stringField(raw, statusKeys)
	return strings.EqualFold(status, "active")
}
