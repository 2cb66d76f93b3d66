package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/analyze"
	"github.com/onnwee/ytchat-tender/config"
)

func newExportCmd() *cobra.Command {
	var (
		videoID      string
		output       string
		formatEmotes bool
		dbDriver     string
		dbDsn        string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived chat messages as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, videoID, output, formatEmotes, dbDriver, dbDsn)
		},
	}
	cmd.Flags().StringVar(&videoID, "video", "", "export only this video's messages")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&formatEmotes, "format-emotes", false, "rewrite custom emote shortcuts to readable placeholders")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "", "database driver, sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&dbDsn, "db-dsn", "", "database DSN (overrides DB_DSN)")
	return cmd
}

func runExport(cmd *cobra.Command, videoID, output string, formatEmotes bool, dbDriver, dbDsn string) error {
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

	rows, err := st.ExportRows(ctx, videoID)
	if err != nil {
		return err
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}
	if err := analyze.ExportCSV(out, rows, formatEmotes); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(rows), output)
	}
	return nil
}
