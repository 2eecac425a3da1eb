// cli/serve.go
package cli

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/gewnthar/bostondata/database"
	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/handlers"
	"github.com/gewnthar/bostondata/metrics"
	"github.com/gewnthar/bostondata/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operational HTTP API (/api/etl, /api/stats, /metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("Starting Boston Open Data ETL server...")

		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		client := newPortalClient()
		etlServices := make(map[string]*services.EtlService)
		for _, d := range datasets.All() {
			resolved, err := descriptorFor(d.Kind)
			if err != nil {
				return err
			}
			etlServices[string(d.Kind)] = services.NewEtlService(client, store, resolved, cfg.Etl.BatchSize)
		}

		etlHandler := &handlers.EtlHandler{Services: etlServices}
		statsHandler := &handlers.StatsHandler{Store: store}

		mux := http.NewServeMux()
		mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := db.Ping(); err != nil {
				http.Error(w, `{"status": "error", "message": "database connection error"}`, http.StatusInternalServerError)
				log.Printf("Health check failed: DB ping error: %v", err)
				return
			}
			fmt.Fprintln(w, `{"status": "ok", "message": "bostondata backend is healthy"}`)
		})
		mux.HandleFunc("/api/etl/run/", etlHandler.RunHandler)
		mux.HandleFunc("/api/stats/", statsHandler.SummaryHandler)
		mux.Handle("/metrics", metrics.Handler())

		serverAddr := ":" + cfg.Server.Port
		log.Printf("Server starting on http://localhost%s\n", serverAddr)
		return http.ListenAndServe(serverAddr, mux)
	},
}
