package audit

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"graintrade.org/internal/auth"
	"graintrade.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with the request id and the
// authenticated user, if any. An unnamed event is dropped with a warning.
func LogEvent(ctx context.Context, event string, fields map[string]any) {
	event = strings.TrimSpace(event)
	if event == "" {
		obs.Logger().WithField("type", "audit").Warn("audit event without name dropped")
		return
	}
	data := logrus.Fields{
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		data["request_id"] = rid
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		data["user_id"] = id.ID
		data["username"] = id.Username
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	data["fields"] = copyFields

	obs.Logger().WithFields(data).Info("audit")
}
