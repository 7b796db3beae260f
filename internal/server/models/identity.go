package models

// Identity is an authenticated caller resolved from an access token.
type Identity struct {
	UserID string
	Email  string
}

// RequestMeta describes where a request came from. Both fields are optional
// and only end up in audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
