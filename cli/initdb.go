// cli/initdb.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/gewnthar/bostondata/database"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the dataset tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.EnsureSchema(db)
	},
}
