package ports

import (
	"context"

	"github.com/99minutos/account-system/internal/core/domain"
)

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// AuditSink durably stores one audit event.
type AuditSink interface {
	Write(ctx context.Context, event domain.AuditEvent) error
}
