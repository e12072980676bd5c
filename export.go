package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/savedtransfer/saved-transfer/internal/saved"
	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export [file]",
		Aliases: []string{"download"},
		Short:   "Write every saved item of an account to a file",
		Long: "Authorize in the browser, list every saved post and comment of that\n" +
			"account, and write them newest first to file (default: save_file).\n" +
			"An existing file is never overwritten.",
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	cfg := resolvedCfg
	logger := buildLogger()

	// Claim the destination first: an existing file ends the run before any
	// browser or network activity.
	w, err := saved.Create(cfg.SaveFile, cfg.SaveFormat())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	defer func() {
		if err != nil {
			w.Abort()
		}
	}()

	stopTracing, err := setupTracing(cfg.Trace, deps.stderr)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer stopTracing()

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()

	ctx := shutdownContext(runCtx, logger)

	tok, err := deps.authorize(ctx, cfg, logger)
	if err != nil {
		if ie := interrupted(ctx); ie != nil {
			return fmt.Errorf("export: %w during authorization", ie)
		}

		return fmt.Errorf("export: authorization failed: %w", err)
	}

	statusf(flagQuiet, "Getting saved items ...\n")

	opts := cfg.TransferOptions()
	opts.OnPage = func(page, written int) {
		logger.Debug("export progress", slog.Int("page", page), slog.Int("written", written))
	}

	remote := deps.newRemote(cfg, tok, logger)

	report, err := transfer.New(remote, opts, logger).Export(ctx, w)
	if err != nil {
		if ie := interrupted(ctx); ie != nil {
			return fmt.Errorf("export: %w, nothing written to %s", ie, w.Path())
		}

		return fmt.Errorf("export: %w", err)
	}

	if err := w.Commit(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	statusf(flagQuiet, "Wrote %d saved items of %s to %s\n", report.Written, report.Account, w.Path())

	if report.Skipped+report.Duplicates > 0 {
		statusf(flagQuiet, "Skipped %d items without an id and %d duplicates\n", report.Skipped, report.Duplicates)
	}

	return nil
}
