package models

import "time"

// AuditEvent records one lifecycle transition: who did what to which
// object, with a short free-form detail string.
type AuditEvent struct {
	ID             int64     `db:"id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	ActorID        int64     `db:"actor_id" json:"actor_id"`
	Action         string    `db:"action" json:"action"`
	TargetType     string    `db:"target_type" json:"target_type"`
	TargetID       int64     `db:"target_id" json:"target_id"`
	Detail         string    `db:"detail" json:"detail"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	AuditAccountConnected    = "account.connected"
	AuditAccountDisconnected = "account.disconnected"
	AuditAccountRefreshed    = "account.refreshed"
	AuditAccountRefreshFail  = "account.refresh_failed"
	AuditPublishAttempt      = "publish.attempt"
	AuditPublishSucceeded    = "publish.succeeded"
	AuditPublishFailed       = "publish.failed"
	AuditJobRetried          = "job.retried"
)
