package audit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	domaudit "github.com/kailas-cloud/birdmatch/internal/domain/audit"
)

// DefaultStream is the stream search audit entries are appended to.
var DefaultStream = domain.KeyPrefix + "audit"

// DefaultMaxLen caps the audit stream at roughly this many entries.
const DefaultMaxLen int64 = 100_000

// Sink receives one entry per executed search.
type Sink interface {
	Record(ctx context.Context, e domaudit.Entry) error
}

// LogSink writes audit entries as structured log events.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing "search_audit" events to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Record logs the entry. It never fails.
func (s *LogSink) Record(_ context.Context, e domaudit.Entry) error {
	s.logger.Info("search_audit",
		zap.String("query_id", e.QueryID),
		zap.String("query_hash", e.QueryHash),
		zap.Int("query_length", e.QueryLength),
		zap.Time("timestamp", e.Timestamp),
	)
	return nil
}

// appender is the consumer interface for the stream sink (ISP).
type appender interface {
	XAdd(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error)
}

// StreamSink appends audit entries to a capped stream.
type StreamSink struct {
	store  appender
	stream string
	maxLen int64
}

// NewStreamSink creates a stream sink. Empty stream and maxLen <= 0 fall back to defaults.
func NewStreamSink(s appender, stream string, maxLen int64) *StreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &StreamSink{store: s, stream: stream, maxLen: maxLen}
}

// Record appends one entry. The raw query is never written.
func (s *StreamSink) Record(ctx context.Context, e domaudit.Entry) error {
	_, err := s.store.XAdd(ctx, s.stream, s.maxLen, map[string]string{
		"query_id":     e.QueryID,
		"query_hash":   e.QueryHash,
		"query_length": strconv.Itoa(e.QueryLength),
		"timestamp":    e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	return err
}

// Multi fans an entry out to every sink and joins their errors.
type Multi []Sink

// Record writes to all sinks even when some fail.
func (m Multi) Record(ctx context.Context, e domaudit.Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
