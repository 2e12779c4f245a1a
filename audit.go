package authgate

import (
	"context"
	"time"
)

const (
	auditEventSessionIssued   = "session_issued"
	auditEventAuthSuccess     = "auth_success"
	auditEventAuthReject      = "auth_reject"
	auditEventRefreshRotation = "refresh_rotation"
	auditEventSessionEvicted  = "session_evicted"
	auditEventLogout          = "logout"
	auditEventUserDeleted     = "user_deleted"
	auditEventUserRestored    = "user_restored"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, sessionID, jti string, reason RejectReason, success bool, err error) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		JTI:       jti,
		Reason:    string(reason),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}
