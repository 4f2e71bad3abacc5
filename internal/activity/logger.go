// Package activity records the append-only user activity trail. Writes are
// best-effort from the caller's perspective: a failed write is logged and
// never fails the primary operation.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"investaccred/backend/internal/activity/domain"
	activityrepo "investaccred/backend/internal/activity/repository"
)

// MetaExtractor returns the client IP and user agent from the request context
// (e.g. values stashed by the HTTP middleware).
type MetaExtractor func(context.Context) (ip, userAgent string)

// Producer fans an entry out to a stream (e.g. Kafka). Best-effort.
type Producer interface {
	Emit(ctx context.Context, e *domain.Entry) error
}

// Multi fans one entry out to several producers. Nil producers are skipped;
// the first error is returned after all producers have been tried. Returns nil
// when no producer remains.
func Multi(producers ...Producer) Producer {
	kept := make([]Producer, 0, len(producers))
	for _, p := range producers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return multiProducer(kept)
}

type multiProducer []Producer

func (m multiProducer) Emit(ctx context.Context, e *domain.Entry) error {
	var firstErr error
	for _, p := range m {
		if err := p.Emit(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Recorder writes activity entries. Used by the auth orchestrator and the
// accreditation engine audit paths.
type Recorder interface {
	Record(ctx context.Context, userID string, typ domain.Type, status domain.Status, details, failureReason string)
}

// Logger implements Recorder using the activity repository, an optional
// stream producer, and an optional request-meta extractor.
type Logger struct {
	repo     activityrepo.Repository
	producer Producer
	meta     MetaExtractor
	log      *zap.Logger
}

// NewLogger returns a Recorder that persists to repo. producer and meta may be
// nil; log must not be.
func NewLogger(repo activityrepo.Repository, producer Producer, meta MetaExtractor, log *zap.Logger) *Logger {
	return &Logger{repo: repo, producer: producer, meta: meta, log: log}
}

// Record appends one activity entry. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, userID string, typ domain.Type, status domain.Status, details, failureReason string) {
	if l.repo == nil {
		return
	}
	ip, ua := "unknown", ""
	if l.meta != nil {
		ip, ua = l.meta(ctx)
	}
	entry := &domain.Entry{
		ID:            uuid.New().String(),
		UserID:        userID,
		ActivityType:  typ,
		Status:        status,
		IPAddress:     ip,
		UserAgent:     ua,
		Details:       details,
		FailureReason: failureReason,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("activity: failed to record entry",
			zap.String("type", string(typ)),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	if l.producer != nil {
		if err := l.producer.Emit(ctx, entry); err != nil {
			l.log.Warn("activity: stream emit failed", zap.String("type", string(typ)), zap.Error(err))
		}
	}
}
