package service

import (
	"context"

	"pontes/internal/audit"
	"pontes/pkg/requestcontext"
)

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:         attrString(attributes, "user_id"),
		Action:         event,
		Branch:         attrString(attributes, "branch"),
		Reason:         attrString(attributes, "reason"),
		CatalogVersion: s.catalog.Version,
		RequestID:      requestID,
		Timestamp:      s.now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", event,
			"error", err,
		)
	}
}

// attrString finds key in a key/value attribute list.
func attrString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			v, _ := attributes[i+1].(string)
			return v
		}
	}
	return ""
}
