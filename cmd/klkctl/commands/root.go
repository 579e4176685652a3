// Package commands holds the klkctl subcommands
package commands

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/moderation"
)

var (
	dataDir     string
	wordListDir string

	mainConfig *config.MainConfig
	db         *database.Database
	svc        *forum.Service
)

// Execute builds the command tree and runs it
func Execute(version string) error {
	config.AppVersion = version

	root := &cobra.Command{
		Use:           "klkctl",
		Short:         "Administer a klkchan installation",
		Version:       version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mainConfig = config.NewDefaultConfig()
			if err := mainConfig.LoadEnv(); err != nil {
				return err
			}
			if dataDir != "" {
				mainConfig.Database.DataDir = dataDir
			}
			if wordListDir != "" {
				mainConfig.Moderation.WordListDir = wordListDir
			}

			dbConfig := database.DefaultDBConfig()
			dbConfig.DataDir = mainConfig.Database.DataDir
			var err error
			if db, err = database.OpenDatabase(dbConfig); err != nil {
				return err
			}
			filter, err := moderation.LoadFilter(mainConfig.Moderation.WordListDir, mainConfig.Moderation.Languages...)
			if err != nil {
				return err
			}
			// listings cached by a running web server expire on their own
			svc = forum.NewService(db, filter, nil)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if db == nil {
				return
			}
			if err := db.Shutdown(); err != nil {
				log.Printf("[KLKCTL] database shutdown: %v", err)
			}
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default ./data or KLK_DB_DATA_DIR)")
	root.PersistentFlags().StringVar(&wordListDir, "wordlists", "", "banned word list directory (default ./data/ldnoobw)")

	root.AddCommand(boardCmd(), userCmd(), reportCmd(), backupCmd())
	return root.Execute()
}
