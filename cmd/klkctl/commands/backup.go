package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = mainConfig.Database.BackupDir
			}
			path, err := db.Backup(context.Background(), dir)
			if err != nil {
				return err
			}
			fmt.Printf("Backup written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "backup directory (default ./backups or KLK_DB_BACKUP_DIR)")
	return cmd
}
