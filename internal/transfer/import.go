package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/saved"
)

// SaveFailure is one item the remote refused.
type SaveFailure struct {
	Item      saved.Item
	Err       error
	Transient bool
}

// ImportReport summarizes one import.
type ImportReport struct {
	Total     int
	Attempted int
	Succeeded int
	Skipped   int // already saved according to the journal
	Failures  []SaveFailure
}

// Failed is the number of items that could not be saved.
func (r *ImportReport) Failed() int { return len(r.Failures) }

// Import saves items on the authorized account, last item first, so the
// account ends up with the same newest-first order the file was exported in.
// A failed save is recorded and the loop moves on, except for authorization
// failures, which end the batch. The report is returned even with an error.
func (e *Engine) Import(ctx context.Context, items []saved.Item) (report *ImportReport, err error) {
	ctx, span := e.tracer.Start(ctx, "transfer.import",
		trace.WithAttributes(attribute.Int("transfer.total", len(items))))
	defer func() {
		span.SetAttributes(
			attribute.Int("transfer.succeeded", report.Succeeded),
			attribute.Int("transfer.failed", report.Failed()),
		)
		endSpan(span, err)
	}()

	order := saved.Reversed(items)
	report = &ImportReport{Total: len(order)}

	batch, done := e.resumeState(ctx, items)

	var lastCall time.Time

	for i, it := range order {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("transfer: import canceled: %w", err)
		}

		fullname := it.Fullname()

		if done[fullname] {
			report.Skipped++
			e.progress(SaveProgress{Index: i + 1, Total: report.Total, Item: it, Skipped: true})

			continue
		}

		if !lastCall.IsZero() {
			if wait := e.opts.MinInterval - e.now().Sub(lastCall); wait > 0 {
				if err := e.sleepFunc(ctx, wait); err != nil {
					return report, fmt.Errorf("transfer: import canceled: %w", err)
				}
			}
		}

		report.Attempted++

		saveCtx, saveSpan := e.tracer.Start(ctx, "transfer.save",
			trace.WithAttributes(attribute.String("reddit.fullname", fullname)))
		err := e.remote.Save(saveCtx, fullname)
		endSpan(saveSpan, err)
		lastCall = e.now()
		e.progress(SaveProgress{Index: i + 1, Total: report.Total, Item: it, Err: err})

		if err != nil {
			report.Failures = append(report.Failures, SaveFailure{
				Item:      it,
				Err:       err,
				Transient: reddit.IsTransient(err),
			})

			e.logger.Warn("save failed",
				slog.String("fullname", fullname),
				slog.Int("index", i+1),
				slog.String("error", err.Error()),
			)

			if reddit.IsAuthFailure(err) {
				return report, fmt.Errorf("transfer: authorization lost after %d of %d items: %w",
					report.Succeeded, report.Total, err)
			}

			if ctx.Err() != nil {
				return report, fmt.Errorf("transfer: import canceled: %w", ctx.Err())
			}

			continue
		}

		report.Succeeded++
		e.record(ctx, batch, fullname)
	}

	if report.Failed() == 0 {
		e.forget(ctx, batch)
	}

	e.logger.Info("import complete",
		slog.Int("total", report.Total),
		slog.Int("attempted", report.Attempted),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed()),
	)

	return report, nil
}

func (e *Engine) progress(p SaveProgress) {
	if e.opts.OnSave != nil {
		e.opts.OnSave(p)
	}
}

// resumeState loads the journal for this batch. Any journal problem disables
// resume for the run instead of failing it.
func (e *Engine) resumeState(ctx context.Context, items []saved.Item) (string, map[string]bool) {
	if e.opts.Journal == nil || len(items) == 0 {
		return "", nil
	}

	acct, err := e.remote.Me(ctx)
	if err != nil {
		e.logger.Warn("resume disabled: cannot resolve account", slog.String("error", err.Error()))
		return "", nil
	}

	batch := BatchKey(acct.Name, items)

	done, err := e.opts.Journal.Completed(ctx, batch)
	if err != nil {
		e.logger.Warn("resume disabled: reading journal failed", slog.String("error", err.Error()))
		return "", nil
	}

	if len(done) > 0 {
		e.logger.Info("resuming import",
			slog.String("user", acct.Name),
			slog.Int("already_saved", len(done)),
		)
	}

	return batch, done
}

func (e *Engine) record(ctx context.Context, batch, fullname string) {
	if e.opts.Journal == nil || batch == "" {
		return
	}

	if err := e.opts.Journal.Record(ctx, batch, fullname); err != nil {
		e.logger.Warn("journal write failed",
			slog.String("fullname", fullname),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) forget(ctx context.Context, batch string) {
	if e.opts.Journal == nil || batch == "" {
		return
	}

	if err := e.opts.Journal.Forget(ctx, batch); err != nil {
		e.logger.Warn("journal cleanup failed", slog.String("error", err.Error()))
	}
}
