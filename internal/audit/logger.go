// Package audit records every successful mutation as an immutable edit
// record. The record is appended to the edit log before the mutating request
// responds, and is then copied to any configured external shippers in the
// background. Audit failures are logged and counted; they are never reported
// to the client and never undo the mutation they describe.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/safego"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

// DefaultAppendTimeout bounds the synchronous edit log write.
const DefaultAppendTimeout = 5 * time.Second

// shipTimeout bounds one background delivery to the shippers.
const shipTimeout = 30 * time.Second

// Appender persists edit records.
type Appender interface {
	AppendEditRecord(ctx context.Context, rec *models.EditRecord) error
}

// Logger writes edit records. It is safe for concurrent use.
type Logger struct {
	appender Appender
	shipper  Shipper
	timeout  time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewLogger creates a Logger appending through appender. shipper may be nil.
// A non-positive timeout uses DefaultAppendTimeout.
func NewLogger(appender Appender, shipper Shipper, timeout time.Duration) *Logger {
	if timeout <= 0 {
		timeout = DefaultAppendTimeout
	}
	return &Logger{
		appender: appender,
		shipper:  shipper,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Record appends one edit record for a completed mutation. The append is
// detached from ctx's cancellation so a client disconnecting after the
// mutation was acknowledged still leaves a record. update is ignored for
// deletes. Record never fails; problems are logged and counted.
func (l *Logger) Record(ctx context.Context, op models.EditOp, collection string, target map[string]string, update interface{}, actor *models.ActorSnapshot) {
	rec := &models.EditRecord{
		Timestamp:  l.now().UTC(),
		Op:         op,
		Collection: collection,
		Target:     models.StringMap(target),
		Actor:      actor,
	}
	if op != models.EditOpDelete {
		doc, err := models.NewDocument(update)
		if err != nil {
			slog.WarnContext(ctx, "edit record update payload dropped",
				"op", op, "collection", collection, "error", err)
		}
		rec.Update = doc
	}

	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.appender.AppendEditRecord(appendCtx, rec); err != nil {
		telemetry.AuditRecordsTotal.WithLabelValues(string(op), collection, "error").Inc()
		slog.ErrorContext(ctx, "failed to append edit record",
			"request_id", telemetry.RequestID(ctx),
			"op", op,
			"collection", collection,
			"target", target,
			"error", err)
		return
	}
	telemetry.AuditRecordsTotal.WithLabelValues(string(op), collection, "ok").Inc()

	if l.shipper == nil {
		return
	}
	l.wg.Add(1)
	safego.Go("ship edit record", func() {
		defer l.wg.Done()
		shipCtx, cancel := context.WithTimeout(context.Background(), shipTimeout)
		defer cancel()
		_ = l.shipper.Ship(shipCtx, rec)
	})
}

// Close waits for in-flight deliveries and then closes the shipper.
func (l *Logger) Close() error {
	l.wg.Wait()
	if l.shipper == nil {
		return nil
	}
	return l.shipper.Close()
}
