package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	reedbackup "github.com/reedcms/reed/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and prune file backups",
}

func init() {
	backupCmd.AddCommand(newBackupListCmd())
	backupCmd.AddCommand(newBackupPruneCmd())
	AddCommand(backupCmd)
}

// backupDir returns the backups/ directory inside the store's data
// directory, where backup.Manager writes its snapshots.
func backupDir() string {
	return filepath.Join(deps.Config.DataDir, "backups")
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List backups for a .reed file, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			names, err := reedbackup.List(backupDir(), args[0])
			if err != nil {
				exitErr(err)
			}
			for _, n := range names {
				fmt.Println(n)
			}
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune <file>",
		Short: "Prune backups for a .reed file down to the retention count",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			n, err := deps.Backup.Prune(backupDir(), args[0])
			if err != nil {
				exitErr(err)
			}
			fmt.Printf("pruned %d backup(s)\n", n)
		},
	}
}
