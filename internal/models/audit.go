package models

import "time"

// Audit actions recorded for authentication and booking events.
const (
	AuditActionLogin   = "LOGIN"
	AuditActionLogout  = "LOGOUT"
	AuditActionRefresh = "TOKEN_REFRESH"
)

// AuditLog captures a security-relevant event.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"-"`
	IPAddress  string    `db:"ip_address" json:"-"`
	UserAgent  string    `db:"user_agent" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
