package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyOrgID         = "org_id"
	KeyFromProtected = "from_protected"
)
