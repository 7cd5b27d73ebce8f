package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
	"github.com/reedcms/reed/internal/roles"
	"github.com/reedcms/reed/internal/taxonomy"
	"github.com/reedcms/reed/internal/users"
)

func init() {
	AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold an empty .reed/ data directory with headers-only files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = ".reed"
			}
			return scaffold(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".reed", "directory to scaffold")
	return cmd
}

// scaffold writes every headers-only .reed file the Store, users, roles
// and taxonomy services expect, plus the backups/ directory their
// snapshotter writes into. A file that already exists is left untouched.
func scaffold(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "backups"), 0o755); err != nil {
		return &corerr.IoError{Operation: "mkdir", Path: dir, Reason: err.Error()}
	}

	scalarFiles := []string{"text.csv", "routes.csv", "meta.csv", "project.csv", "server.csv"}
	for _, name := range scalarFiles {
		if err := writeIfAbsent(filepath.Join(dir, name), codec.EmitScalarFile(nil)); err != nil {
			return err
		}
	}

	matrixFiles := map[string][]string{
		"users.matrix.csv":       users.Header,
		"roles.matrix.csv":       roles.Header,
		"terms.matrix.csv":       taxonomy.TermHeader,
		"assignments.matrix.csv": taxonomy.AssignmentHeader,
	}
	for name, header := range matrixFiles {
		if err := writeIfAbsent(filepath.Join(dir, name), codec.EmitMatrixFile(header, nil)); err != nil {
			return err
		}
	}

	return nil
}

func writeIfAbsent(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &corerr.IoError{Operation: "stat", Path: path, Reason: err.Error()}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &corerr.IoError{Operation: "write", Path: path, Reason: err.Error()}
	}
	return nil
}
