package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// ExportReport summarizes one export.
type ExportReport struct {
	Account    string
	Pages      int
	Written    int
	Skipped    int // children without an id
	Duplicates int
	Fallbacks  int // unknown kinds written as posts
}

// Export writes every saved item of the authorized account to sink, in the
// order the listing returns them. The listing order is taken as given.
func (e *Engine) Export(ctx context.Context, sink Sink) (report *ExportReport, err error) {
	ctx, span := e.tracer.Start(ctx, "transfer.export")
	defer func() {
		if report != nil {
			span.SetAttributes(
				attribute.Int("transfer.pages", report.Pages),
				attribute.Int("transfer.written", report.Written),
			)
		}
		endSpan(span, err)
	}()

	acct, err := e.remote.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer: resolving account: %w", err)
	}

	report = &ExportReport{Account: acct.Name}
	seen := make(map[string]bool)
	seenCursors := make(map[string]bool)
	after := ""

	e.logger.Info("exporting saved items", slog.String("user", acct.Name))

	for {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("transfer: export canceled: %w", err)
		}

		page, err := e.remote.SavedPage(ctx, acct.Name, after)
		if err != nil {
			return report, fmt.Errorf("transfer: fetching saved page %d: %w", report.Pages+1, err)
		}

		report.Pages++

		for _, th := range page.Things {
			it, fallback := classify(th)

			if it.ID == "" {
				report.Skipped++
				e.logger.Warn("skipping saved item without id", slog.String("kind", th.Kind))

				continue
			}

			if seen[it.Fullname()] {
				report.Duplicates++
				continue
			}

			seen[it.Fullname()] = true

			if fallback {
				report.Fallbacks++
				e.logger.Warn("unknown saved item kind, writing as post",
					slog.String("kind", th.Kind),
					slog.String("id", it.ID),
				)
			}

			if err := sink.Append(it); err != nil {
				return report, fmt.Errorf("transfer: writing item %s: %w", it.Fullname(), err)
			}

			report.Written++
		}

		if e.opts.OnPage != nil {
			e.opts.OnPage(report.Pages, report.Written)
		}

		if page.After == "" || len(page.Things) == 0 {
			break
		}

		if seenCursors[page.After] {
			e.logger.Warn("listing cursor repeated, stopping", slog.String("after", page.After))
			break
		}

		seenCursors[page.After] = true
		after = page.After
	}

	e.logger.Info("export complete",
		slog.Int("pages", report.Pages),
		slog.Int("written", report.Written),
		slog.Int("skipped", report.Skipped),
		slog.Int("duplicates", report.Duplicates),
	)

	return report, nil
}
