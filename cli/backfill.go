// cli/backfill.go
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gewnthar/bostondata/database"
	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/services"
	"github.com/gewnthar/bostondata/utils"
)

var (
	backfillFile string
	backfillURL  string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill [dataset]",
	Short: "Load a dataset's CSV snapshot (bulk historical load)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := datasets.Kind(utils.NormalizeDatasetArg(args[0]))
		if _, err := datasets.ByKind(kind); err != nil {
			return fmt.Errorf("unknown dataset %q", args[0])
		}

		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		svc := services.NewBackfillService(store, cfg.Etl.BatchSize)

		var result *services.RunResult
		switch {
		case backfillFile != "":
			file, err := os.Open(backfillFile)
			if err != nil {
				return fmt.Errorf("failed to open snapshot file %s: %w", backfillFile, err)
			}
			defer file.Close()
			result, err = svc.FromCSV(cmd.Context(), kind, file)
			if err != nil {
				return err
			}
		case backfillURL != "":
			result, err = svc.FromURL(cmd.Context(), kind, backfillURL)
			if err != nil {
				return err
			}
		default:
			// Fall back to the snapshot URL from config.
			override, ok := cfg.Datasets[string(kind)]
			if !ok || override.SnapshotCSV == "" {
				return fmt.Errorf("no snapshot source: pass --file or --url, or set datasets.%s.snapshot_csv in config", kind)
			}
			result, err = svc.FromURL(cmd.Context(), kind, override.SnapshotCSV)
			if err != nil {
				return err
			}
		}

		fmt.Printf("%-24s state=%-8s decoded=%-8d cleaned=%-8d loaded=%-8d elapsed=%s\n",
			result.Dataset, result.State, result.RowsFetched,
			result.RowsCleaned, result.RowsLoaded, result.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFile, "file", "", "path to a local snapshot CSV")
	backfillCmd.Flags().StringVar(&backfillURL, "url", "", "snapshot CSV URL (overrides config)")
}
