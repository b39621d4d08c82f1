package authgate

import (
	"context"
	"time"
)

// Audit event types emitted by the Engine.
const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventRefreshSuccess   = "token_refresh"
	auditEventRefreshInvalid   = "token_refresh_rejected"
	auditEventLogout           = "logout"
	auditEventLogoutAll        = "logout_all"
)

// emitAudit builds and queues one event. metadata is built lazily so the
// disabled path costs nothing beyond the nil check.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, email string, opErr error, metadata func() map[string]string) {
	if e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		ClientIP:  clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	if metadata != nil {
		ev.Metadata = metadata()
	}
	e.audit.emit(ev)
}

// AuditDropped reports how many audit events were lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.droppedCount()
}
