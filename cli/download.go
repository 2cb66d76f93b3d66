package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/onnwee/ytchat-tender/config"
	"github.com/onnwee/ytchat-tender/crawl"
	"github.com/onnwee/ytchat-tender/snapshot"
	"github.com/onnwee/ytchat-tender/store"
	"github.com/onnwee/ytchat-tender/youtubeapi"
)

type downloadFlags struct {
	maxVideos      int
	startDate      string
	endDate        string
	startIndex     int
	endIndex       int
	skipExisting   bool
	stopOnExisting bool
	saveToDB       bool
	jsonDir        string
	dbDriver       string
	dbDsn          string
	cookies        string
}

func newDownloadCmd() *cobra.Command {
	var f downloadFlags
	cmd := &cobra.Command{
		Use:   "download <channel>",
		Short: "Download chat histories for a channel's past livestreams",
		Long: `Resolve a channel by handle, URL or id, list its completed
livestreams and archive each stream's chat replay. Already-archived
videos are skipped, and by default the crawl halts at the first one
since newer streams are listed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], f)
		},
	}
	cmd.Flags().IntVarP(&f.maxVideos, "max-videos", "m", 0, "cap on videos to download (0 = no cap)")
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "only videos uploaded on or after this date (YYYYMMDD)")
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "only videos uploaded on or before this date (YYYYMMDD)")
	cmd.Flags().IntVar(&f.startIndex, "start-index", 0, "skip the first N videos of the filtered list")
	cmd.Flags().IntVar(&f.endIndex, "end-index", 0, "stop before this position in the filtered list (0 = to end)")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", true, "skip videos whose chat is already archived")
	cmd.Flags().BoolVar(&f.stopOnExisting, "stop-on-existing", true, "halt the crawl at the first archived video")
	cmd.Flags().BoolVar(&f.saveToDB, "save-to-db", false, "also write messages to the relational store")
	cmd.Flags().StringVar(&f.jsonDir, "json-dir", "", "snapshot output directory (overrides JSON_DIR)")
	cmd.Flags().StringVar(&f.dbDriver, "db-driver", "", "database driver, sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&f.dbDsn, "db-dsn", "", "database DSN (overrides DB_DSN)")
	cmd.Flags().StringVarP(&f.cookies, "cookies", "c", "", "Netscape cookie file for age-gated replays (overrides COOKIES_PATH)")
	return cmd
}

func runDownload(cmd *cobra.Command, ref string, f downloadFlags) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPIReady(); err != nil {
		return err
	}

	filter, err := buildFilter(f)
	if err != nil {
		return err
	}

	meta, err := youtubeapi.NewClient(ctx, cfg.YTAPIKey, cfg.YTAccessToken)
	if err != nil {
		return fmt.Errorf("create youtube client: %w", err)
	}

	cookies := cfg.CookiesPath
	if f.cookies != "" {
		cookies = f.cookies
	}

	jsonDir := cfg.JSONDir
	if f.jsonDir != "" {
		jsonDir = f.jsonDir
	}
	sinks := []crawl.Sink{&snapshot.Writer{Dir: jsonDir}}

	// The store serves two roles here: the opt-in sink, and the existence
	// checker behind skip/stop. Skip and stop must see yesterday's archive
	// even when today's run is snapshot-only.
	var checker crawl.MessageChecker
	wantSink, wantChecker := storeRoles(f)
	if wantSink || wantChecker {
		st, err := openStore(ctx, cfg, f.dbDriver, f.dbDsn)
		if err != nil {
			return err
		}
		defer st.Close()
		if wantSink {
			sinks = append(sinks, &store.SinkAdapter{Store: st})
		}
		if wantChecker {
			checker = &store.CheckerAdapter{Store: st}
		}
	}

	driver := &crawl.Driver{
		Resolver: crawl.NewResolver(meta),
		Chat:     youtubeapi.NewChatReplay(cookies),
		Checker:  checker,
		Sinks:    sinks,
		Pacer:    crawl.NewPacer(cfg.PaceInterval),
	}
	sum, err := driver.Run(ctx, ref, crawl.Options{
		Filter:         filter,
		SkipExisting:   f.skipExisting,
		StopOnExisting: f.stopOnExisting,
	})
	if errors.Is(err, crawl.ErrNoLivestreams) {
		fmt.Println("Channel resolved but has no livestream videos to archive.")
		return nil
	}
	if err != nil {
		return err
	}

	printSummary(sum)
	return nil
}

// storeRoles reports which store roles a download needs: the sink only when
// persistence is requested, the checker whenever the incremental gate is on.
func storeRoles(f downloadFlags) (sink, checker bool) {
	return f.saveToDB, f.skipExisting || f.stopOnExisting
}

func buildFilter(f downloadFlags) (crawl.FilterSpec, error) {
	spec := crawl.FilterSpec{
		StartIndex: f.startIndex,
		EndIndex:   f.endIndex,
		MaxVideos:  f.maxVideos,
	}
	var err error
	if spec.StartDate, err = parseDateFlag(f.startDate); err != nil {
		return spec, fmt.Errorf("invalid --start-date: %w", err)
	}
	if spec.EndDate, err = parseDateFlag(f.endDate); err != nil {
		return spec, fmt.Errorf("invalid --end-date: %w", err)
	}
	return spec, nil
}

// parseDateFlag accepts YYYYMMDD or YYYY-MM-DD.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (want YYYYMMDD)", s)
}

func printSummary(sum crawl.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"Considered", "Downloaded", "Skipped", "Failed"})
	t.AppendRow(table.Row{sum.Considered, sum.Downloaded, sum.Skipped, sum.Failed})
	t.Render()
	if sum.HaltedEarly {
		fmt.Println("Crawl halted at the first already-archived video.")
	}
}
