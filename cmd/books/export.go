package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export statements to external destinations",
	}
	cmd.AddCommand(exportSheetsCmd())
	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write the monthly statements to a Google Sheets spreadsheet",
		Long: `Write the monthly balance sheet, cash flow, income and installment reports
to a Google Sheets spreadsheet, replacing the report sheet's contents.

Authentication uses either a service account key file or an OAuth client
with a refresh token. Configure one of:

  sheets:
    service_account_path: ~/.config/books/service-account.json
    spreadsheet_id: 1AbC...

or set BOOKS_SHEETS_CLIENT_ID, BOOKS_SHEETS_CLIENT_SECRET and
BOOKS_SHEETS_REFRESH_TOKEN.`,
		RunE: runExportSheets,
	}
	cmd.Flags().String("spreadsheet-id", "", "spreadsheet to write to (overrides config)")
	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), "Export")

	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return common.NewUserError("Google Sheets is not configured", err)
	}
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		sheetsCfg.SpreadsheetID = id
	}

	writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
	if err != nil {
		return err
	}

	aliases, err := config.LoadAliasTable()
	if err != nil && !errors.Is(err, common.ErrMissingConfig) {
		return err
	}

	snap, eng, loc, err := loadReportInputs(ctx)
	if err != nil {
		return err
	}

	warnings, err := exportReports(ctx, writer, snap, eng, aliases, time.Now().In(loc))
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), warnings)
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported reports to Google Sheets"))
	return nil
}

// exportReports computes the bundle for snap and hands it to writer.
func exportReports(ctx context.Context, writer service.ReportWriter, snap model.Snapshot, eng *engine.Engine, aliases *pattern.AliasTable, now time.Time) ([]model.Warning, error) {
	bundle, warnings, err := buildBundle(snap, eng, aliases, now)
	if err != nil {
		return nil, err
	}
	if err := writer.Write(ctx, bundle); err != nil {
		return warnings, fmt.Errorf("failed to export reports: %w", err)
	}
	return warnings, nil
}
