// cli/verify.go
package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gewnthar/bostondata/catalog"
	"github.com/gewnthar/bostondata/database"
	"github.com/gewnthar/bostondata/datasets"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check stored data against the portal catalog",
	Long: "Prints row counts, event-date ranges, and top categories per dataset, " +
		"and scrapes each dataset's portal page to confirm the configured " +
		"resource ID is still listed and report when the portal last updated it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		for _, d := range datasets.All() {
			if d.Kind == datasets.KindServiceRequestLegacy {
				// Shares a table with the current 311 feed.
				continue
			}
			resolved, err := descriptorFor(d.Kind)
			if err != nil {
				return err
			}

			summary, err := store.Summary(cmd.Context(), resolved)
			if err != nil {
				return fmt.Errorf("failed to summarize %s: %w", d.Kind, err)
			}

			fmt.Printf("\n=== %s ===\n", d.Kind)
			fmt.Printf("rows: %d\n", summary.TotalRows)
			if summary.EarliestEvent != nil && summary.LatestEvent != nil {
				fmt.Printf("event range: %s .. %s\n",
					summary.EarliestEvent.Format("2006-01-02"),
					summary.LatestEvent.Format("2006-01-02"))
			}
			for _, cc := range summary.TopCategories {
				fmt.Printf("  %-40s %d\n", cc.Category, cc.Count)
			}

			pageURL := ""
			if override, ok := cfg.Datasets[string(d.Kind)]; ok {
				pageURL = override.PageURL
			}
			if pageURL == "" {
				log.Printf("WARN Verify: no portal page configured for %s; skipping catalog check.\n", d.Kind)
				continue
			}

			info, err := catalog.CheckDataset(string(d.Kind), pageURL, cfg.CatalogSelectors.LastUpdated)
			if err != nil {
				log.Printf("WARN Verify: catalog check for %s failed: %v\n", d.Kind, err)
				continue
			}
			fmt.Printf("portal last updated: %s\n", info.LastUpdated.Format("2006-01-02"))
			if !catalog.ContainsResource(info, resolved.ResourceID) {
				log.Printf("WARN Verify: configured resource %s for %s is not listed on its portal page anymore.\n",
					resolved.ResourceID, d.Kind)
			}
		}
		return nil
	},
}
