package cli

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/config"
	"github.com/onnwee/ytchat-tender/crawl"
	"github.com/onnwee/ytchat-tender/youtubeapi"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <channel>",
		Short: "Check that a channel resolves and list its livestreams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, ref string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPIReady(); err != nil {
		return err
	}
	meta, err := youtubeapi.NewClient(ctx, cfg.YTAPIKey, cfg.YTAccessToken)
	if err != nil {
		return fmt.Errorf("create youtube client: %w", err)
	}

	channelID, vids, err := crawl.NewResolver(meta).Resolve(ctx, ref)
	if errors.Is(err, crawl.ErrNoLivestreams) {
		fmt.Printf("Channel %s resolved but has no livestream videos.\n", channelID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Channel: %s (%d livestreams)\n", channelID, len(vids))
	if name := vids[0].ChannelName; name != "" {
		fmt.Printf("Name: %s\n", name)
	}

	t := newTable()
	t.AppendHeader(table.Row{"#", "Video ID", "Upload Date", "Title"})
	for i, v := range vids {
		if i >= 5 {
			t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("... and %d more", len(vids)-5)})
			break
		}
		t.AppendRow(table.Row{i + 1, v.VideoID, v.UploadDate, truncate(v.Title, 60)})
	}
	t.Render()
	return nil
}

// truncate shortens a title to n characters, counting runes so multi-byte
// titles are never cut mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
