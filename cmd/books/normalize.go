package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const normalizeBatchSize = 200

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Correct stored amounts whose sign contradicts their transaction type",
		Long: `Re-run sign normalization over every stored transaction. Only a leading
bracketed marker in the transaction type or a raw direction field is acted
on: "[-]" or "(-)" makes the amount negative, "[+]" or "(+)" makes it
positive. Transactions without a marker keep their stored sign, whatever
their type says. Each rewrite is recorded and can be listed with --history.`,
		RunE: runNormalize,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "List corrections without saving them")
	cmd.Flags().Bool("history", false, "Show previously recorded corrections")
	cmd.Flags().String("transaction", "", "Limit --history to one transaction ID")

	return cmd
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	history, _ := cmd.Flags().GetBool("history")

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), "Normalization")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if history {
		txnID, _ := cmd.Flags().GetString("transaction")
		return showCorrections(ctx, out, store, txnID)
	}

	fixes, err := normalizeLedger(ctx, store, cmd.ErrOrStderr(), dryRun)
	if err != nil {
		return err
	}

	if len(fixes) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("Every stored amount already has the right sign"))
		return nil
	}
	fmt.Fprintln(out, cli.RenderSignFixes(fixes, nil))
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run complete - %d correction(s) not saved", len(fixes))))
	} else {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Corrected %d transaction(s)", len(fixes))))
	}
	return nil
}

// normalizeLedger finds stored transactions with contradicting signs and,
// unless dryRun, writes the corrections back in batches. Progress is drawn
// on progress when it is non-nil.
func normalizeLedger(ctx context.Context, store service.Storage, progress io.Writer, dryRun bool) ([]engine.SignFix, error) {
	txns, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	fixes := engine.NormalizeAll(txns)
	slog.Info("Sign normalization scanned ledger", "transactions", len(txns), "corrections", len(fixes))
	if dryRun || len(fixes) == 0 {
		return fixes, nil
	}

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = newProgressBar(progress, len(fixes), "Correcting signs...")
	}

	for start := 0; start < len(fixes); start += normalizeBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := fixes[start:min(start+normalizeBatchSize, len(fixes))]
		updates := make([]service.AmountUpdate, len(batch))
		for i, fix := range batch {
			updates[i] = service.AmountUpdate{ChannelID: fix.ChannelID, TransactionID: fix.TransactionID, Amount: fix.To}
		}
		if err := store.UpdateTransactionAmounts(ctx, updates); err != nil {
			return nil, fmt.Errorf("failed to save corrections: %w", err)
		}
		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}
	return fixes, nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func showCorrections(ctx context.Context, out io.Writer, store *storage.SQLiteStorage, txnID string) error {
	corrections, err := store.GetSignCorrections(ctx, txnID)
	if err != nil {
		return err
	}
	if len(corrections) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No sign corrections recorded"))
		return nil
	}

	fixes := make([]engine.SignFix, len(corrections))
	when := make([]time.Time, len(corrections))
	for i, c := range corrections {
		fixes[i] = engine.SignFix{ChannelID: c.ChannelID, TransactionID: c.TransactionID, From: c.Previous, To: c.Corrected}
		when[i] = c.CorrectedAt
	}
	fmt.Fprintln(out, cli.RenderSignFixes(fixes, when))
	return nil
}
