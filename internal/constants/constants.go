package constants

// Session and context keys
const (
	SessionCookieName = "portal_session"
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
	SessionKeySSO     = "sso_state"
)

// Validation limits
const (
	MinPasswordLength = 6
	MaxNameLength     = 100
	MaxTitleLength    = 255
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Uploads
const (
	DefaultMaxUploadBytes = 50 << 20 // 50MB
	UploadFormField       = "file"
)
