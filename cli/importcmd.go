package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/config"
	"github.com/onnwee/ytchat-tender/snapshot"
	"github.com/onnwee/ytchat-tender/store"
)

func newImportCmd() *cobra.Command {
	var (
		dbDriver string
		dbDsn    string
	)
	cmd := &cobra.Command{
		Use:   "import <snapshot.json | directory>",
		Short: "Load JSON snapshots into the relational store",
		Long: `Import one snapshot file, or every snapshot in a directory, into
the database. Importing the same snapshot twice is harmless: videos are
upserted and duplicate messages are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], dbDriver, dbDsn)
		},
	}
	cmd.Flags().StringVar(&dbDriver, "db-driver", "", "database driver, sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&dbDsn, "db-dsn", "", "database DSN (overrides DB_DSN)")
	return cmd
}

func runImport(cmd *cobra.Command, path, dbDriver, dbDsn string) error {
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

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	paths := []string{path}
	if info.IsDir() {
		if paths, err = snapshot.List(path); err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("No snapshot files found in %s.\n", path)
			return nil
		}
	}

	imported, inserted, err := importSnapshots(ctx, st, paths)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d snapshots, %d new messages.\n", imported, inserted)
	return nil
}

// importSnapshots loads each snapshot into the store. Re-importing is safe:
// videos are upserted and messages already present are ignored, so inserted
// counts only new rows.
func importSnapshots(ctx context.Context, st store.Store, paths []string) (imported, inserted int, err error) {
	for _, p := range paths {
		unit, err := snapshot.Read(p)
		if err != nil {
			return imported, inserted, err
		}
		if err := st.UpsertVideo(ctx, unit.VideoInfo); err != nil {
			return imported, inserted, fmt.Errorf("import %s: %w", p, err)
		}
		n, err := st.InsertMessages(ctx, unit.ChatMessages)
		if err != nil {
			return imported, inserted, fmt.Errorf("import %s: %w", p, err)
		}
		imported++
		inserted += n
		fmt.Printf("%s: %d messages (%d new)\n", unit.VideoInfo.VideoID, len(unit.ChatMessages), n)
	}
	return imported, inserted, nil
}
