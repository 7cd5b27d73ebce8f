// Package cli implements the reed administrative command tree (C11,
// SPEC_FULL.md §6): a cobra front end over the Store, users, roles,
// taxonomy and backup services, wired together once by cmd/reed/main.go
// and exposed here as a package-level Deps.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/backup"
	"github.com/reedcms/reed/internal/config"
	"github.com/reedcms/reed/internal/requestctx"
	"github.com/reedcms/reed/internal/roles"
	"github.com/reedcms/reed/internal/store"
	"github.com/reedcms/reed/internal/taxonomy"
	"github.com/reedcms/reed/internal/users"
)

// Deps is every service the command tree can reach. main.go builds one
// of these at startup and calls SetDeps before Execute.
type Deps struct {
	Config   *config.EnvironmentConfig
	Store    *store.Store
	Users    *users.Service
	Roles    *roles.Service
	Taxonomy *taxonomy.Service
	Backup   *backup.Manager
}

var deps Deps

// SetDeps installs the services the command tree will operate on.
func SetDeps(d Deps) { deps = d }

var rootCmd = &cobra.Command{
	Use:   "reed",
	Short: "reed is the administrative CLI for a reed data core",
	Long: `reed manages a .reed/ data directory: text, route, meta and
config lookups, user and role administration, taxonomy terms and
assignments, and backup retention.

Initialize a new data directory:
  reed init

Read or write a value:
  reed get text greeting --lang en
  reed set text greeting "Hello" --desc "homepage banner"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := requestctx.WithRequestID(cmd.Context(), uuid.NewString())
		ctx = requestctx.WithRequestTime(ctx, time.Now())
		cmd.SetContext(ctx)
		log.Logger = log.Logger.With().Str("request_id", requestctx.RequestID(ctx)).Logger()
		return nil
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(setupLogging)
}

// setupLogging configures zerolog per deps.Config.Log (console or json,
// level by name), falling back to sane defaults before deps is set.
func setupLogging() {
	level := zerolog.InfoLevel
	format := "console"
	if deps.Config != nil {
		if parsed, err := zerolog.ParseLevel(deps.Config.Log.Level); err == nil {
			level = parsed
		}
		format = deps.Config.Log.Format
	}
	zerolog.SetGlobalLevel(level)

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// AddCommand registers cmd on the root command. Exported so main.go can
// keep using the teacher's registration style if it wants to.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Version returns the reed version string. rootCmd sets no Version, so
// there is no `reed --version` flag.
func Version() string {
	return fmt.Sprintf("reed version %s", "0.1.0-dev")
}

// exitErr prints err to stderr in a uniform shape and exits 1. Used by
// the leaf commands' Run functions instead of returning the error
// (cobra's default error printing duplicates "Error:" with our own
// logging and adds a usage dump we don't want for runtime failures).
func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

