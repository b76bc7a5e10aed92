package models

// Ключи контекста gin, которые заполняет middleware аутентификации.
const (
	CtxUserIDKey  = "user_id"
	CtxRoleKey    = "user_role"
	CtxIsAdminKey = "user_is_admin"
	CtxClaimsKey  = "claims"
)
