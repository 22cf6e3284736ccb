package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial statements computed from the stored ledger",
	}

	cmd.AddCommand(
		balanceSheetCmd(),
		cashFlowCmd(),
		incomeCmd(),
		installmentsCmd(),
	)
	return cmd
}

func balanceSheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity at the end of each period",
		RunE:  runBalanceSheet,
	}
	cmd.Flags().StringP("granularity", "g", "all", "period size (month, quarter, half, all)")
	cmd.Flags().Bool("channels", false, "also show each channel's balance")
	addFormatFlag(cmd)
	return cmd
}

func cashFlowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cash-flow",
		Short: "Monthly external flows by activity",
		RunE:  runCashFlow,
	}
	cmd.Flags().Bool("inflows", false, "list the external inflows behind each month")
	addFormatFlag(cmd)
	return cmd
}

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Monthly deposits attributed to configured income sources",
		RunE:  runIncome,
	}
	cmd.Flags().Bool("detail", false, "also list the source chosen for each deposit")
	addFormatFlag(cmd)
	return cmd
}

func installmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installments",
		Short: "Amortization state of installment purchases",
		RunE:  runInstallments,
	}
	cmd.Flags().String("now", "", "evaluate as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("schedule", false, "include the month-by-month schedule")
	addFormatFlag(cmd)
	return cmd
}

// loadReportInputs opens the store and reads one snapshot that every
// statement of the command is computed from.
func loadReportInputs(ctx context.Context) (model.Snapshot, *engine.Engine, *time.Location, error) {
	eng, loc, err := newEngine()
	if err != nil {
		return model.Snapshot{}, nil, nil, err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return model.Snapshot{}, nil, nil, err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return model.Snapshot{}, nil, nil, err
	}
	return snap, eng, loc, nil
}

func parseGranularities(s string) ([]period.Granularity, error) {
	if s == "" || s == "all" {
		return period.All, nil
	}
	g, err := period.ParseGranularity(s)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("unknown granularity %q (use month, quarter, half or all)", s), err)
	}
	return []period.Granularity{g}, nil
}

func runBalanceSheet(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	gs, _ := cmd.Flags().GetString("granularity")
	granularities, err := parseGranularities(gs)
	if err != nil {
		return err
	}
	withChannels, _ := cmd.Flags().GetBool("channels")

	snap, eng, _, err := loadReportInputs(cmd.Context())
	if err != nil {
		return err
	}
	report, err := eng.Build(snap)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), report.Warnings)

	if format == formatJSON {
		type section struct {
			Granularity period.Granularity      `json:"granularity"`
			Rows        []model.BalanceSheetRow `json:"rows"`
			Channels    []model.ChannelBalance  `json:"channels,omitempty"`
		}
		sections := make([]section, 0, len(granularities))
		for _, g := range granularities {
			s := section{Granularity: g, Rows: report.BalanceSheets[g]}
			if withChannels {
				s.Channels = report.ChannelBalances[g]
			}
			sections = append(sections, s)
		}
		return writeJSON(cmd.OutOrStdout(), sections)
	}

	out := cmd.OutOrStdout()
	if len(report.BalanceSheets[period.Monthly]) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No dated transactions yet"))
		return nil
	}
	for _, g := range granularities {
		fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Balance sheet by %s (%s)", g, report.Ledger)))
		fmt.Fprintln(out, cli.RenderBalanceSheet(report.BalanceSheets[g]))
		if withChannels {
			fmt.Fprintln(out, cli.RenderChannelBalances(report.ChannelBalances[g]))
		}
	}
	return nil
}

func runCashFlow(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	withInflows, _ := cmd.Flags().GetBool("inflows")

	snap, eng, _, err := loadReportInputs(cmd.Context())
	if err != nil {
		return err
	}
	report, err := eng.Build(snap)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), report.Warnings)

	if format == formatJSON {
		payload := struct {
			Months  []model.CashFlowRow    `json:"months"`
			Inflows []model.ExternalInflow `json:"inflows,omitempty"`
			Pairs   []model.TransferPair   `json:"transfers"`
		}{Months: report.CashFlows, Pairs: report.Pairs}
		if withInflows {
			payload.Inflows = report.ExternalInflows
		}
		return writeJSON(cmd.OutOrStdout(), payload)
	}

	out := cmd.OutOrStdout()
	if len(report.CashFlows) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No dated transactions yet"))
		return nil
	}
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Cash flow (%s)", report.Ledger)))
	fmt.Fprintln(out, cli.RenderCashFlow(report.CashFlows))
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d internal transfer(s) excluded", len(report.Pairs))))
	if withInflows {
		fmt.Fprintln(out, cli.RenderInflows(report.ExternalInflows))
	}
	return nil
}

func runIncome(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	aliases, err := config.LoadAliasTable()
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			return common.NewUserError("no income sources configured; add income.aliases to your config file", err)
		}
		return err
	}

	snap, eng, _, err := loadReportInputs(cmd.Context())
	if err != nil {
		return err
	}
	detail, _ := cmd.Flags().GetBool("detail")
	rows, warnings := eng.Income(snap, aliases)
	printWarnings(cmd.ErrOrStderr(), warnings)
	var attributions []pattern.Attribution
	if detail {
		attributions = eng.IncomeAttributions(snap, aliases)
	}

	if format == formatJSON {
		payload := struct {
			Months       []model.IncomeSourceRow `json:"months"`
			Attributions []pattern.Attribution   `json:"attributions,omitempty"`
		}{Months: rows, Attributions: attributions}
		return writeJSON(cmd.OutOrStdout(), payload)
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No external deposits found"))
		return nil
	}
	fmt.Fprintln(out, cli.FormatTitle("Income by source"))
	fmt.Fprintln(out, cli.RenderIncome(rows))
	if detail {
		fmt.Fprintln(out, cli.RenderAttributions(attributions))
	}
	return nil
}

func runInstallments(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	withSchedule, _ := cmd.Flags().GetBool("schedule")

	snap, eng, loc, err := loadReportInputs(cmd.Context())
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	if s, _ := cmd.Flags().GetString("now"); s != "" {
		if now, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return common.NewUserError(fmt.Sprintf("invalid --now date %q (use YYYY-MM-DD)", s), err)
		}
	}

	plans := eng.Installments(snap, now, withSchedule)
	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), plans)
	}
	out := cmd.OutOrStdout()
	if len(plans) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No installment purchases found"))
		return nil
	}
	fmt.Fprintln(out, cli.FormatTitle("Installments as of "+now.Format(time.DateOnly)))
	fmt.Fprintln(out, cli.RenderInstallments(plans))
	return nil
}

// buildBundle computes every statement for export from one snapshot. Income
// is left empty when aliases is nil.
func buildBundle(snap model.Snapshot, eng *engine.Engine, aliases *pattern.AliasTable, now time.Time) (*service.ReportBundle, []model.Warning, error) {
	report, err := eng.Build(snap)
	if err != nil {
		return nil, nil, err
	}

	bundle := &service.ReportBundle{
		GeneratedAt:     now,
		Ledger:          service.DateRange{Start: report.Ledger.Start, End: report.Ledger.End},
		BalanceSheet:    report.BalanceSheets[period.Monthly],
		ChannelBalances: report.ChannelBalances[period.Monthly],
		CashFlow:        report.CashFlows,
		Installments:    eng.Installments(snap, now, false),
	}
	if aliases != nil {
		bundle.Income, _ = eng.Income(snap, aliases)
	} else {
		slog.Info("Income sources not configured; skipping income report")
	}
	return bundle, report.Warnings, nil
}

func printWarnings(w io.Writer, warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprint(w, cli.RenderWarnings(warnings))
}
