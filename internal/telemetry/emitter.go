package telemetry

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"investaccred/backend/internal/activity"
	"investaccred/backend/internal/activity/domain"
)

// NewActivityEmitter returns an activity.Producer that ships entries as OTel
// log records via the given LoggerProvider. If provider is nil, a no-op
// producer is returned.
func NewActivityEmitter(provider *sdklog.LoggerProvider) activity.Producer {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("investaccred.activity")}
}

// newActivityEmitterWithLogger is the test seam.
func newActivityEmitterWithLogger(logger recordLogger) activity.Producer {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Entry) error { return nil }

// recordLogger is the subset of otellog.Logger the emitter needs.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

type otelEmitter struct {
	logger recordLogger
}

// Emit converts the activity entry to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	rec := otellog.Record{}
	if !entry.CreatedAt.IsZero() {
		rec.SetTimestamp(entry.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if entry.Details != "" {
		rec.SetBody(otellog.StringValue(entry.Details))
	}
	rec.AddAttributes(
		otellog.String("activity_id", entry.ID),
		otellog.String("user_id", entry.UserID),
		otellog.String("activity_type", string(entry.ActivityType)),
		otellog.String("status", string(entry.Status)),
	)
	if entry.IPAddress != "" {
		rec.AddAttributes(otellog.String("ip_address", entry.IPAddress))
	}
	if entry.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent", entry.UserAgent))
	}
	if entry.FailureReason != "" {
		rec.AddAttributes(otellog.String("failure_reason", entry.FailureReason))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
