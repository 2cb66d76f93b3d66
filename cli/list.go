package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/config"
)

func newListCmd() *cobra.Command {
	var (
		channelID string
		dbDriver  string
		dbDsn     string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived videos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, channelID, dbDriver, dbDsn)
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "scope the listing to one channel id")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "", "database driver, sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&dbDsn, "db-dsn", "", "database DSN (overrides DB_DSN)")
	return cmd
}

func runList(cmd *cobra.Command, channelID, dbDriver, dbDsn string) error {
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

	vids, err := st.ListVideos(ctx, channelID)
	if err != nil {
		return err
	}
	if len(vids) == 0 {
		fmt.Println("No archived videos.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Video ID", "Upload Date", "Status", "Views", "Messages", "Title"})
	for _, v := range vids {
		t.AppendRow(table.Row{v.VideoID, v.UploadDate, v.LiveStatus, v.ViewCount, v.MessageCount, truncate(v.Title, 50)})
	}
	t.Render()
	return nil
}
