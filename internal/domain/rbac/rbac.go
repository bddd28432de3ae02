// Пакет rbac — роли клиники и определение эффективной роли вызывающего.
// Роли берутся из realm_access.roles JWT. Итоговая роль = максимальная из известных.
package rbac

// Роли клиники.
const (
	RolePatient = "Patient"
	RoleDoctor  = "Doctor"
	RoleStaff   = "Staff"
	RoleAdmin   = "Admin"
)

// roleWeight — вес роли вызывающего. Patient не является ролью консоли.
var roleWeight = map[string]int{
	RoleDoctor: 1,
	RoleStaff:  2,
	RoleAdmin:  3,
}

// StaffRoles — роли персонала клиники (всё, кроме Patient).
var StaffRoles = []string{RoleAdmin, RoleDoctor, RoleStaff}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную известную роль из набора.
// Неизвестные роли игнорируются; если известных нет — пустая строка.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if !IsConsoleRole(r) {
			continue
		}
		highest = maxRole(highest, r)
	}
	return highest
}

// IsConsoleRole проверяет, даёт ли роль доступ к консоли.
func IsConsoleRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}
