package model

import "strings"

// SortDirection — направление сортировки по имени.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection разбирает направление сортировки. Пустое и неизвестное значение — asc.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// Toggle возвращает противоположное направление.
func (d SortDirection) Toggle() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// Query — параметры запроса списка учётных записей.
type Query struct {
	// Role — фильтр по роли (точное совпадение, пусто — все)
	Role string
	// Keyword — подстрока поиска, фильтрация выполняется на удалённой стороне
	Keyword string
	// Page — номер страницы, начиная с 1
	Page int
	// PageSize — размер страницы
	PageSize int
	// Sort — направление сортировки
	Sort SortDirection
}

// Normalize возвращает копию запроса с приведёнными к допустимым значениями полями.
// page < 1 → 1, pageSize < 1 → defaultSize, pageSize > maxSize → maxSize.
func (q Query) Normalize(defaultSize, maxSize int) Query {
	q.Role = strings.TrimSpace(q.Role)
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultSize
	}
	if maxSize > 0 && q.PageSize > maxSize {
		q.PageSize = maxSize
	}
	if q.Sort != SortDesc {
		q.Sort = SortAsc
	}
	return q
}
