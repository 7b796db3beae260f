package models

import "time"

// AuditAction is the kind of a security-relevant event.
type AuditAction string

const (
	AuditRegister      AuditAction = "REGISTER"
	AuditLogin         AuditAction = "LOGIN"
	AuditLogout        AuditAction = "LOGOUT"
	AuditLogoutAll     AuditAction = "LOGOUT_ALL"
	AuditPasswordReset AuditAction = "PASSWORD_RESET"
	AuditEmailVerified AuditAction = "EMAIL_VERIFIED"
)

// AuditLogEntry is an append-only security event.
type AuditLogEntry struct {
	ID        string
	UserID    string
	Action    AuditAction
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
}
