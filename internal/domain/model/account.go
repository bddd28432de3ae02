// Пакет model — доменные модели clinic-console.
package model

import "slices"

// Account — учётная запись клиники в каноническом виде.
// Формируется на границе чтения (пакет accounts) из сырой записи Remote Account Source.
type Account struct {
	// ID — непрозрачный идентификатор учётной записи
	ID string
	// Email — адрес электронной почты
	Email string
	// FullName — отображаемое имя (из fullName / name / firstName+lastName)
	FullName string
	// Phone — номер телефона
	Phone string
	// Roles — множество ролей (без дубликатов, отсортировано)
	Roles []string
	// IsActive — активна ли учётная запись
	IsActive bool
	// SortKey — производный ключ сортировки (личное имя, полное имя)
	SortKey SortKey
	// Raw — исходная запись без изменений
	Raw map[string]any
}

// SortKey — составной ключ сортировки по имени.
type SortKey struct {
	// Given — нормализованное личное имя (последний токен)
	Given string
	// Full — полное нормализованное имя
	Full string
}

// IsZero сообщает, что ключ не вычислен (или имя пустое).
func (k SortKey) IsZero() bool {
	return k == SortKey{}
}

// HasRole проверяет наличие роли (точное совпадение).
func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// Profile — полная замена профиля (email, имя, телефон).
// Роли после создания не меняются и в Profile отсутствуют.
type Profile struct {
	Email    string
	FullName string
	Phone    string
}

// Page — согласованная страница учётных записей.
type Page struct {
	// Items — не более PageSize записей, ни одна не исключена
	Items []Account
	// Total — оценка общего количества после исключения
	Total int
	// HasNextPage — вероятно, существует следующая страница
	HasNextPage bool
}

// Exclusion — предикат исключения: true означает, что запись скрыта от UI.
type Exclusion func(Account) bool

// ExcludeNone не исключает ни одной записи.
func ExcludeNone() Exclusion {
	return func(Account) bool { return false }
}

// ExcludeRoles исключает записи, имеющие хотя бы одну из ролей.
func ExcludeRoles(roles ...string) Exclusion {
	return func(a Account) bool {
		for _, r := range roles {
			if a.HasRole(r) {
				return true
			}
		}
		return false
	}
}

// AnyOf исключает запись, если её исключает хотя бы один из предикатов.
// nil-предикаты пропускаются.
func AnyOf(preds ...Exclusion) Exclusion {
	return func(a Account) bool {
		for _, p := range preds {
			if p != nil && p(a) {
				return true
			}
		}
		return false
	}
}
