package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
)

// LogSink writes audit events as structured log lines. It is used when the
// configured store has no audit collection.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, ev domain.AuditEvent) error {
	e := s.log.Info()
	if ev.Outcome == domain.OutcomeFailure {
		e = s.log.Warn().Str("reason", ev.Reason)
	}
	e.Str("action", string(ev.Action)).
		Str("outcome", ev.Outcome).
		Str("actor", ev.Actor).
		Int64("actor_id", ev.ActorID).
		Int64("target_id", ev.TargetID).
		Str("client_ip", ev.ClientIP).
		Str("request_id", ev.RequestID).
		Time("occurred_at", ev.OccurredAt).
		Msg("audit")
	return nil
}
