package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// multipartThreshold is the buffered size above which a flush switches to the
// multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

// ArchiverConfig tunes batching of the event archive.
type ArchiverConfig struct {
	// Prefix is the object key prefix, e.g. "events".
	Prefix string
	// RunID partitions objects per process run so restarts never collide.
	RunID string
	// FlushEvents triggers a flush once this many events are buffered.
	FlushEvents int
	// FlushInterval triggers a time-based flush of a partial buffer.
	FlushInterval time.Duration
}

// Archiver implements domain.EventSink by batching applied events and
// uploading them as newline-delimited JSON objects. Upload failures are
// logged and dropped; the archive is a best-effort cold copy, the store
// remains the source of truth.
type Archiver struct {
	writer *Writer
	cfg    ArchiverConfig
	logger *slog.Logger

	mu  sync.Mutex
	buf []domain.Event
}

// NewArchiver creates an Archiver writing through w.
func NewArchiver(w *Writer, cfg ArchiverConfig, logger *slog.Logger) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "events"
	}
	if cfg.FlushEvents <= 0 {
		cfg.FlushEvents = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	return &Archiver{
		writer: w,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Record buffers one applied event, flushing when the batch is full.
func (a *Archiver) Record(ctx context.Context, ev domain.Event) {
	a.mu.Lock()
	a.buf = append(a.buf, ev)
	full := len(a.buf) >= a.cfg.FlushEvents
	a.mu.Unlock()

	if full {
		a.Flush(ctx)
	}
}

// Run flushes partial buffers on a ticker until ctx is cancelled, then
// performs a final flush with a short grace window.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			graceCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			a.Flush(graceCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush uploads the current buffer, if any. Errors are logged, not returned;
// the buffered events are dropped either way so a broken bucket cannot grow
// memory without bound.
func (a *Archiver) Flush(ctx context.Context) {
	a.mu.Lock()
	batch := a.buf
	a.buf = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	data, err := marshalNDJSON(batch)
	if err != nil {
		a.logger.ErrorContext(ctx, "encode archive batch",
			slog.Int("events", len(batch)),
			slog.String("error", err.Error()),
		)
		return
	}

	key := a.objectKey(batch[0].Position)
	if len(data) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data))
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data))
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "upload archive batch",
			slog.String("key", key),
			slog.Int("events", len(batch)),
			slog.String("error", err.Error()),
		)
		return
	}

	a.logger.InfoContext(ctx, "archived events",
		slog.String("key", key),
		slog.Int("events", len(batch)),
	)
}

// objectKey names a batch by run and the position of its first event, so
// lexicographic listing within a run matches chain order.
//
//	events/{runID}/000000018423001-000003-000017.ndjson
func (a *Archiver) objectKey(p domain.Position) string {
	return fmt.Sprintf("%s/%s/%015d-%06d-%06d.ndjson",
		a.cfg.Prefix, a.cfg.RunID, p.Block, p.TxIndex, p.LogIndex)
}

// marshalNDJSON serialises events as one compact JSON document per line.
func marshalNDJSON(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.EventSink = (*Archiver)(nil)
