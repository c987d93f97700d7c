package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)

// Authentication methods recorded on the context
const (
	AuthSession = "session"
	AuthAPIKey  = "api_key"
)
