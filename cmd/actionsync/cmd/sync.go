package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/surjbayarea/actionsync/internal/fieldmap"
	"github.com/surjbayarea/actionsync/pkg/checkpoint"
	"github.com/surjbayarea/actionsync/pkg/logging"
	"github.com/surjbayarea/actionsync/pkg/reconciler"
	"github.com/surjbayarea/actionsync/pkg/rows"
	"github.com/surjbayarea/actionsync/pkg/tagmap"
)

var (
	syncStart     int
	syncEnd       int
	syncCount     int
	syncUpdate    bool
	syncDryRun    bool
	syncStrict    bool
	syncLog       string
	syncResume    bool
	syncOverwrite bool
	syncMapping   string
	syncFieldmap  string
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync [file]",
	Short: "Sync an Action Network CSV export to EveryAction",
	Long: `Sync walks an Action Network activist export row by row and reconciles
each row against the EveryAction committee database.

Each row is matched by email. Unmatched rows are created (unless
--strict is set), matched rows receive subscription, phone, and
activist code deltas, and --update re-pushes name, email, address,
and phone fields wholesale.

Every evaluated row is journaled to the checkpoint log. An existing
log must be explicitly resumed or overwritten; with --resume, rows
that already succeeded are skipped and failed rows are re-attempted.

The input file defaults to $ACTIONNETWORK_ACTIVIST_CSV.`,
	Example: `  actionsync sync downloads/export-2022-03-22.csv
  actionsync sync --start 100 --count 50 export.csv
  actionsync sync --dryrun --log - export.csv
  actionsync sync --resume export.csv
  actionsync sync --update --overwrite export.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVar(&syncStart, "start", 1, "first row to process (1-based)")
	syncCmd.Flags().IntVar(&syncEnd, "end", 0, "last row to process (inclusive)")
	syncCmd.Flags().IntVar(&syncCount, "count", 0, "number of rows to process from --start")
	syncCmd.Flags().BoolVar(&syncUpdate, "update", false, "overwrite name, email, address and phone on existing contacts")
	syncCmd.Flags().BoolVar(&syncDryRun, "dryrun", false, "evaluate rows without pushing any change")
	syncCmd.Flags().BoolVar(&syncStrict, "strict", false, "never create contacts, log NOT_FOUND instead")
	syncCmd.Flags().StringVar(&syncLog, "log", "", "checkpoint log file, '-' for console (default <file>.log)")
	syncCmd.Flags().BoolVar(&syncResume, "resume", false, "resume from an existing checkpoint log")
	syncCmd.Flags().BoolVar(&syncOverwrite, "overwrite", false, "overwrite an existing checkpoint log")
	syncCmd.Flags().StringVar(&syncMapping, "mapping", "tags_mapping.csv", "legacy tag to code name mapping CSV")
	syncCmd.Flags().StringVar(&syncFieldmap, "fieldmap", "", "YAML override for the address column mapping")

	syncCmd.MarkFlagsMutuallyExclusive("end", "count")
	syncCmd.MarkFlagsMutuallyExclusive("resume", "overwrite")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	input := viper.GetString(EnvCSV)
	if len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return fmt.Errorf("no input file: pass one or set %s", EnvCSV)
	}

	cfg := reconciler.Config{
		Start:  syncStart,
		End:    syncEnd,
		Update: syncUpdate,
		DryRun: syncDryRun,
		Strict: syncStrict,
	}
	if syncCount > 0 {
		cfg.End = syncStart + syncCount - 1
	}
	if cfg.End == 0 {
		cfg.End = reconciler.MaxIndex
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer func() { _ = f.Close() }()

	src, err := rows.Open(f, input)
	if err != nil {
		return err
	}

	var tags reconciler.TagResolver
	if src.Columns().Tags {
		catalog, err := loadTagCatalog(cmd, client)
		if err != nil {
			return err
		}
		if catalog != nil {
			tags = catalog
		}
	}

	fields, err := fieldmap.LoadFile(syncFieldmap)
	if err != nil {
		return err
	}

	logPath := syncLog
	if logPath == "" {
		logPath = input + ".log"
	}
	journal, err := checkpoint.Open(logPath, input, checkpoint.Options{
		Resume:    syncResume,
		Overwrite: syncOverwrite,
		DryRun:    syncDryRun,
	})
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	engine, err := reconciler.New(cfg, client, tags, fields.Prune(src.Columns()), journal)
	if err != nil {
		return err
	}

	stats, err := engine.Run(logging.WithDataset(ctx, input), src)
	reportStats(cmd, stats)
	return err
}

// loadTagCatalog builds the tag resolver from the remote code catalog and
// the local mapping file. A missing mapping file disables tag sync.
func loadTagCatalog(cmd *cobra.Command, lister tagmap.CodeLister) (*tagmap.Catalog, error) {
	ctx := cmd.Context()

	f, err := os.Open(syncMapping)
	if err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("mapping") {
			logging.Warn().Str("mapping", syncMapping).Msg("no tag mapping file, tag sync disabled")
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", syncMapping, err)
	}
	defer func() { _ = f.Close() }()

	catalog, err := tagmap.Load(ctx, lister, f, syncMapping)
	if err != nil {
		return nil, err
	}
	cmd.Printf("Loaded %d tag mappings from %s\n", catalog.Len(), syncMapping)
	return catalog, nil
}

func reportStats(cmd *cobra.Command, stats reconciler.Stats) {
	cmd.Printf("\nEvaluated:   %d\n", stats.Evaluated)
	cmd.Printf("Skipped:     %d\n", stats.Skipped)
	cmd.Printf("Created:     %d\n", stats.Created)
	cmd.Printf("Updated:     %d\n", stats.Updated)
	cmd.Printf("Not found:   %d\n", stats.NotFound)
	cmd.Printf("ID mismatch: %d\n", stats.Mismatched)
	cmd.Printf("Errors:      %d\n", stats.Errors)
}
