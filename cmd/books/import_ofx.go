package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/ofx"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX (Quicken) files exported from your bank
or card issuer. Each account in a file becomes a channel; bank accounts start
as assets and card accounts as liabilities.

Examples:
  # Import single file
  books import-ofx ~/Downloads/checking_jan_2024.qfx

  # Import every statement in a directory
  books import-ofx ~/Downloads/statements/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

type importSummary struct {
	Files       int
	Channels    int
	NewChannels int
	Parsed      int
	Inserted    int
	SignFixes   int
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), "Import")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := importFiles(ctx, store, ofx.NewParser(slog.Default()), files, dryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("OFX import"))
	fmt.Fprintf(out, "Files: %d  Channels: %d (%d new)  Transactions: %d parsed, %d new  Sign fixes: %d\n",
		summary.Files, summary.Channels, summary.NewChannels, summary.Parsed, summary.Inserted, summary.SignFixes)
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run complete - no data saved"))
	} else {
		fmt.Fprintln(out, cli.FormatSuccess("Import complete"))
	}
	return nil
}

// expandFiles resolves glob patterns into file paths.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", nil)
	}
	return files, nil
}

// importFiles parses statements, corrects signs and stores what is new.
// Channels that already exist keep their stored name and metadata.
func importFiles(ctx context.Context, store service.Storage, parser *ofx.Parser, files []string, dryRun bool) (importSummary, error) {
	summary := importSummary{Files: len(files)}
	channels := make(map[string]model.Channel)
	var channelOrder []string
	seen := make(map[string]bool)
	var txns []model.Transaction

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		f, err := os.Open(path)
		if err != nil {
			return summary, fmt.Errorf("failed to open %s: %w", path, err)
		}
		imp, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			return summary, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}

		for _, ch := range imp.Channels {
			if _, ok := channels[ch.ID]; !ok {
				channels[ch.ID] = ch
				channelOrder = append(channelOrder, ch.ID)
			}
		}
		for _, t := range imp.Transactions {
			if seen[t.Hash] {
				continue
			}
			seen[t.Hash] = true
			txns = append(txns, t)
		}

		slog.Info("Processed file",
			"file", filepath.Base(path),
			"channels", len(imp.Channels),
			"transactions", len(imp.Transactions))
	}

	summary.Channels = len(channels)
	summary.Parsed = len(txns)
	summary.SignFixes = len(engine.NormalizeAll(txns))

	var fresh []model.Channel
	for _, id := range channelOrder {
		_, err := store.GetChannel(ctx, id)
		switch {
		case errors.Is(err, common.ErrNotFound):
			fresh = append(fresh, channels[id])
		case err != nil:
			return summary, err
		}
	}
	summary.NewChannels = len(fresh)

	if dryRun {
		return summary, nil
	}

	if len(fresh) > 0 {
		if err := store.SaveChannels(ctx, fresh); err != nil {
			return summary, fmt.Errorf("failed to save channels: %w", err)
		}
	}
	if len(txns) == 0 {
		return summary, nil
	}
	inserted, err := store.SaveTransactions(ctx, txns)
	if err != nil {
		return summary, fmt.Errorf("failed to save transactions: %w", err)
	}
	summary.Inserted = inserted
	return summary, nil
}
