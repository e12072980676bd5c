// Package transfer moves saved items between the remote account and a save
// file. Export pages through the saved listing; Import re-saves a file's
// items in reverse order, paced to the remote rate limit.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/saved"
)

// DefaultMinInterval is the spacing between save calls: Reddit documents
// 60 requests per minute for OAuth clients.
const DefaultMinInterval = time.Second

const tracerName = "github.com/savedtransfer/saved-transfer/internal/transfer"

// Remote is the subset of the API client the engine needs.
type Remote interface {
	Me(ctx context.Context) (*reddit.Account, error)
	SavedPage(ctx context.Context, user, after string) (*reddit.Page, error)
	Save(ctx context.Context, fullname string) error
}

// Sink receives exported items in listing order.
type Sink interface {
	Append(it saved.Item) error
}

// Journal remembers which saves of a batch already succeeded so an
// interrupted import can resume. A batch is forgotten once it finishes
// without failures.
type Journal interface {
	Completed(ctx context.Context, batch string) (map[string]bool, error)
	Record(ctx context.Context, batch, fullname string) error
	Forget(ctx context.Context, batch string) error
}

// SaveProgress describes one processed import item.
type SaveProgress struct {
	Index   int // 1-based
	Total   int
	Item    saved.Item
	Err     error
	Skipped bool
}

// Options tunes an Engine. The zero value is usable.
type Options struct {
	// MinInterval is the least time between one save call returning and the
	// next one starting. Zero means DefaultMinInterval.
	MinInterval time.Duration

	// Journal, when set, enables resume for imports.
	Journal Journal

	// OnSave is called after each import item.
	OnSave func(SaveProgress)

	// OnPage is called after each exported page with the running count.
	OnPage func(page, written int)

	// TracerProvider receives export, import and per-save spans. Nil uses
	// the global provider.
	TracerProvider trace.TracerProvider
}

// Engine runs exports and imports against one remote account.
type Engine struct {
	remote Remote
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	now       func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an Engine.
func New(remote Remote, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Engine{
		remote:    remote,
		opts:      opts,
		logger:    logger,
		tracer:    tp.Tracer(tracerName),
		now:       time.Now,
		sleepFunc: timeSleep,
	}
}

// BatchKey identifies an import of items into account. Re-running the same
// file against the same account yields the same key.
func BatchKey(account string, items []saved.Item) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", account)

	for _, it := range items {
		fmt.Fprintf(h, "%s\n", it.Fullname())
	}

	return hex.EncodeToString(h.Sum(nil))
}

// endSpan marks span failed when err is set and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
