// Пакет views — именованные представления списка учётных записей.
// Представление = фиксированный фильтр по роли + предикат исключения + допустимые роли вызывающего.
package views

import (
	"slices"

	"github.com/bigkaa/clinic-console/internal/domain/model"
	"github.com/bigkaa/clinic-console/internal/domain/rbac"
)

// Имена представлений.
const (
	NameAccounts = "accounts"
	NamePatients = "patients"
)

// View — представление списка.
type View struct {
	// Name — имя представления
	Name string
	// Role — фиксированный фильтр по роли (пусто — фильтр задаёт вызывающий)
	Role string
	// Exclude — записи, скрытые от представления
	Exclude model.Exclusion
	// AllowedRoles — роли вызывающего, которым доступно представление
	AllowedRoles []string
}

var registry = map[string]View{
	// Панель администратора: все учётные записи, кроме пациентов.
	NameAccounts: {
		Name:         NameAccounts,
		Exclude:      model.ExcludeRoles(rbac.RolePatient),
		AllowedRoles: []string{rbac.RoleAdmin},
	},
	// Панели врача и персонала: только пациенты без служебных ролей.
	NamePatients: {
		Name:         NamePatients,
		Role:         rbac.RolePatient,
		Exclude:      model.ExcludeRoles(rbac.RoleAdmin, rbac.RoleDoctor, rbac.RoleStaff),
		AllowedRoles: []string{rbac.RoleAdmin, rbac.RoleStaff, rbac.RoleDoctor},
	},
}

// Names возвращает имена всех представлений в алфавитном порядке.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Lookup находит представление по имени. Пустое имя — accounts.
func Lookup(name string) (View, bool) {
	if name == "" {
		name = NameAccounts
	}
	v, ok := registry[name]
	return v, ok
}

// Apply подставляет фиксированную роль представления в запрос.
func (v View) Apply(q model.Query) model.Query {
	if v.Role != "" {
		q.Role = v.Role
	}
	return q
}

// AllowedFor проверяет, доступно ли представление вызывающему с данной ролью.
func (v View) AllowedFor(role string) bool {
	return slices.Contains(v.AllowedRoles, role)
}
