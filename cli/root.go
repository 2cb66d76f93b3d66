// Package cli implements the command-line interface: downloading chat
// histories, validating channel access, importing snapshots, and inspecting
// the archive.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/config"
	"github.com/onnwee/ytchat-tender/store"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ytchat",
	Short: "Archive YouTube livestream chat histories",
	Long: `ytchat resolves a channel, lists its past livestreams and downloads
each stream's full chat replay into JSON snapshots and an optional
SQLite or Postgres archive.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ytchat version %s\n", Version)
		},
	})
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newListCmd())
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openStore connects to the relational backend, letting flag values override
// the environment configuration when set.
func openStore(ctx context.Context, cfg *config.Config, driverFlag, dsnFlag string) (store.Store, error) {
	driver := cfg.DBDriver
	if driverFlag != "" {
		driver = driverFlag
	}
	dsn := cfg.DBDsn
	if dsnFlag != "" {
		dsn = dsnFlag
	}
	st, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return st, nil
}

// newTable returns a writer rendering to stdout in the shared style.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}
