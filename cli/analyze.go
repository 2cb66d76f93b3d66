package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/analyze"
	"github.com/onnwee/ytchat-tender/config"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		channelID string
		dbDriver  string
		dbDsn     string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize the archive: totals, busiest videos, top chatters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, channelID, dbDriver, dbDsn)
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "scope the report to one channel id")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "", "database driver, sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&dbDsn, "db-dsn", "", "database DSN (overrides DB_DSN)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, channelID, dbDriver, dbDsn string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, dbDriver, dbDsn)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := analyze.Build(ctx, st, channelID)
	if err != nil {
		return err
	}

	s := report.Stats
	t := newTable()
	t.AppendHeader(table.Row{"Videos", "Messages", "Authors", "Superchats", "Memberships", "First", "Last"})
	t.AppendRow(table.Row{s.Videos, s.Messages, s.UniqueAuthors, s.Superchats, s.Memberships, s.FirstDate, s.LastDate})
	t.Render()

	if len(report.TopVideos) > 0 {
		fmt.Println("\nBusiest videos:")
		t = newTable()
		t.AppendHeader(table.Row{"Video ID", "Upload Date", "Messages", "Title"})
		for _, v := range report.TopVideos {
			t.AppendRow(table.Row{v.VideoID, v.UploadDate, v.MessageCount, truncate(v.Title, 50)})
		}
		t.Render()
	}

	if len(report.TopChatters) > 0 {
		fmt.Println("\nTop chatters:")
		t = newTable()
		t.AppendHeader(table.Row{"Author", "Author ID", "Messages"})
		for _, c := range report.TopChatters {
			t.AppendRow(table.Row{c.AuthorName, c.AuthorID, c.Messages})
		}
		t.Render()
	}
	return nil
}
