package telemetry

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"investaccred/backend/internal/activity/domain"
)

func TestNewActivityEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewActivityEmitter(nil)
	if em == nil {
		t.Fatal("NewActivityEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.Entry{UserID: "user-1"}); err != nil {
		t.Errorf("noop Emit(ctx, entry): %v", err)
	}
}

func TestEmit_NilEntry_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewActivityEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := newActivityEmitterWithLogger(cap)
	created := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	entry := &domain.Entry{
		ID:            "act-1",
		UserID:        "user-1",
		ActivityType:  domain.TypeLogin,
		Status:        domain.StatusFailure,
		IPAddress:     "203.0.113.9",
		UserAgent:     "test-agent",
		Details:       "session=sess-1",
		FailureReason: "invalid password",
		CreatedAt:     created,
	}
	if err := em.Emit(context.Background(), entry); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	if got := rec.Body().AsString(); got != "session=sess-1" {
		t.Errorf("body = %q, want %q", got, "session=sess-1")
	}

	attrs := map[string]string{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"activity_id":    "act-1",
		"user_id":        "user-1",
		"activity_type":  "Login",
		"status":         "Failure",
		"ip_address":     "203.0.113.9",
		"user_agent":     "test-agent",
		"failure_reason": "invalid password",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_ZeroCreatedAtGetsTimestamp(t *testing.T) {
	cap := &recordCapture{}
	em := newActivityEmitterWithLogger(cap)
	if err := em.Emit(context.Background(), &domain.Entry{ID: "act-2", UserID: "user-1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if cap.rec.Timestamp().IsZero() {
		t.Error("timestamp should be set when CreatedAt is zero")
	}
}
