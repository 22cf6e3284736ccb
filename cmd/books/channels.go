package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List channels and override how they are reported",
	}
	cmd.AddCommand(channelsListCmd(), channelsSetCmd())
	return cmd
}

func channelsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels with their derived role and activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			channels, err := store.GetChannels(cmd.Context())
			if err != nil {
				return err
			}
			engineCfg, err := config.LoadEngineConfig(slog.Default())
			if err != nil {
				return err
			}
			classes := engineCfg.Classifier.ClassifyAll(channels)

			if format == formatJSON {
				type channelView struct {
					model.Channel
					Role       model.ReportingRole    `json:"role"`
					Activity   model.CashFlowActivity `json:"activity"`
					OffBalance bool                   `json:"off_balance"`
				}
				views := make([]channelView, 0, len(channels))
				for _, ch := range channels {
					c := classes[ch.ID]
					views = append(views, channelView{Channel: ch, Role: c.Role, Activity: c.Activity, OffBalance: c.OffBalance})
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderChannels(channels, classes))
			return nil
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func channelsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <channel-id>",
		Short: "Override a channel's reporting role, cash flow activity or balance-sheet inclusion",
		Long: `Store overrides in the channel's metadata. They take precedence over the
naming heuristics. Pass an empty value to remove an override.

Examples:
  books channels set 7f1c... --role liability
  books channels set 7f1c... --activity financing
  books channels set 7f1c... --off-balance=true`,
		Args: cobra.ExactArgs(1),
		RunE: runChannelsSet,
	}
	cmd.Flags().String("role", "", "reporting role (asset, liability, equity)")
	cmd.Flags().String("activity", "", "cash flow activity (operating, investing, financing)")
	cmd.Flags().String("off-balance", "", "exclude the channel from every report (true, false)")
	return cmd
}

func runChannelsSet(cmd *cobra.Command, args []string) error {
	updates, err := metadataUpdates(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateChannelMetadata(cmd.Context(), args[0], updates); err != nil {
		return common.NewUserError("could not update channel "+args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated channel "+args[0]))
	return nil
}

// metadataUpdates collects the overrides whose flags were given. Values are
// validated here so typos fail before the database is opened.
func metadataUpdates(cmd *cobra.Command) (map[string]string, error) {
	updates := make(map[string]string)
	flags := []struct {
		flag string
		key  string
	}{
		{"role", model.MetaReportingRole},
		{"activity", model.MetaCashFlowActivity},
		{"off-balance", model.MetaOffBalance},
	}
	for _, f := range flags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.flag)
		updates[f.key] = v
	}
	if len(updates) == 0 {
		return nil, common.NewUserError("nothing to change; pass --role, --activity or --off-balance", nil)
	}

	var err error
	if v := updates[model.MetaReportingRole]; v != "" {
		_, err = model.ParseReportingRole(v)
	}
	if v := updates[model.MetaCashFlowActivity]; err == nil && v != "" {
		_, err = model.ParseCashFlowActivity(v)
	}
	if v := updates[model.MetaOffBalance]; err == nil && v != "" {
		_, err = strconv.ParseBool(v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return updates, nil
}
