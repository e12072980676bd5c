package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/savedtransfer/saved-transfer/internal/saved"
	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import [file]",
		Aliases: []string{"upload"},
		Short:   "Save every item of a file on an account",
		Long: "Read file (default: save_file), authorize in the browser, and save each\n" +
			"item on that account, oldest first, one call per save_interval. Items an\n" +
			"interrupted run already saved are skipped unless --no-resume is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg := resolvedCfg
	logger := buildLogger()

	// Read before authorizing: a missing or malformed file never opens a
	// browser.
	items, err := saved.ReadFile(cfg.SaveFile)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if len(items) == 0 {
		statusf(flagQuiet, "No items in %s, nothing to import\n", cfg.SaveFile)
		return nil
	}

	if cfg.Resume {
		release, lockErr := acquireImportLock(journalLockPath(cfg.JournalPath))
		if lockErr != nil {
			return fmt.Errorf("import: %w", lockErr)
		}
		defer release()
	}

	stopTracing, err := setupTracing(cfg.Trace, deps.stderr)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer stopTracing()

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()

	ctx := shutdownContext(runCtx, logger)

	tok, err := deps.authorize(ctx, cfg, logger)
	if err != nil {
		if ie := interrupted(ctx); ie != nil {
			return fmt.Errorf("import: %w during authorization", ie)
		}

		return fmt.Errorf("import: authorization failed: %w", err)
	}

	opts := cfg.TransferOptions()

	if cfg.Resume {
		j, jErr := deps.openJournal(ctx, cfg.JournalPath, logger)
		if jErr != nil {
			logger.Warn("import journal unavailable, resume disabled", slog.String("error", jErr.Error()))
		} else {
			defer j.Close()
			opts.Journal = j
		}
	}

	progress := newProgressPrinter(deps.stderr, deps.stderrTTY, flagQuiet)
	opts.OnSave = progress.update

	remote := deps.newRemote(cfg, tok, logger)

	report, err := transfer.New(remote, opts, logger).Import(ctx, items)
	progress.finish()

	if report != nil && !flagQuiet {
		printImportSummary(deps.stderr, report)
	}

	if err != nil {
		if ie := interrupted(ctx); ie != nil {
			if opts.Journal != nil && report != nil && report.Succeeded > 0 {
				statusf(flagQuiet, "Run the same import again to skip the %d items already saved\n", report.Succeeded)
			}

			return fmt.Errorf("import: %w", ie)
		}

		return fmt.Errorf("import: %w", err)
	}

	if report.Failed() > 0 {
		return fmt.Errorf("import: %d of %d items could not be saved", report.Failed(), report.Total)
	}

	return nil
}
