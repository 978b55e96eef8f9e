package domain

import "time"

// AuditAction names a security-relevant operation.
type AuditAction string

const (
	ActionRegister    AuditAction = "register"
	ActionLogin       AuditAction = "login"
	ActionLoginEmail  AuditAction = "login_email"
	ActionGetSelf     AuditAction = "get_self"
	ActionUpdateSelf  AuditAction = "update_self"
	ActionDeleteSelf  AuditAction = "delete_self"
	ActionAdminList   AuditAction = "admin_list"
	ActionAdminGet    AuditAction = "admin_get"
	ActionAdminCreate AuditAction = "admin_create"
	ActionAdminUpdate AuditAction = "admin_update"
	ActionAdminDelete AuditAction = "admin_delete"
	ActionProvision   AuditAction = "provision"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEvent records who did what to whom. Actor is the username (or the
// identifier presented at login); ActorID and TargetID are zero when unknown.
type AuditEvent struct {
	Action     AuditAction
	Outcome    string
	Reason     string
	Actor      string
	ActorID    int64
	TargetID   int64
	ClientIP   string
	RequestID  string
	OccurredAt time.Time
}
