package models

// Роли пользователей
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// AllRoles возвращает все допустимые роли.
func AllRoles() []string {
	return []string{RoleUser, RoleAdmin, RoleSuperAdmin}
}

// IsValidRole проверяет, что роль известна.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsPrivileged - администраторы не ограничены дневным лимитом генераций.
func IsPrivileged(role string, isAdmin bool) bool {
	return isAdmin || role == RoleAdmin || role == RoleSuperAdmin
}
