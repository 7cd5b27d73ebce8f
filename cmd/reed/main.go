// Command reed is the administrative CLI for a reed data core: it
// bootstraps configuration and every domain service, then hands control
// to internal/cli's cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reedcms/reed/internal/backup"
	"github.com/reedcms/reed/internal/cli"
	"github.com/reedcms/reed/internal/config"
	"github.com/reedcms/reed/internal/roles"
	"github.com/reedcms/reed/internal/store"
	"github.com/reedcms/reed/internal/taxonomy"
	"github.com/reedcms/reed/internal/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reed:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	var mirror backup.Mirror
	if cfg.Backup.Mirror.Enabled {
		m, err := backup.NewS3Mirror(context.Background(), cfg.Backup.Mirror)
		if err != nil {
			return fmt.Errorf("configuring backup mirror: %w", err)
		}
		mirror = m
	}
	backupMgr := backup.NewManager(cfg.Backup.RetainCount, mirror)

	st := store.New(cfg.DataDir, "", backupMgr)
	if err := st.InitAll(); err != nil {
		return fmt.Errorf("loading data directory %q: %w", cfg.DataDir, err)
	}
	// The Store's default language is project.default_language, which can
	// only be read once project.csv has been loaded.
	if resp, err := st.GetConfig(store.Request{Key: "project.default_language"}, false); err == nil && resp.Data != "" {
		st = store.New(cfg.DataDir, resp.Data, backupMgr)
		if err := st.InitAll(); err != nil {
			return fmt.Errorf("loading data directory %q: %w", cfg.DataDir, err)
		}
	}

	usersSvc := users.NewService(filepath.Join(cfg.DataDir, "users.matrix.csv"), backupMgr)
	if err := usersSvc.Load(); err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	rolesSvc, err := roles.NewService(filepath.Join(cfg.DataDir, "roles.matrix.csv"), backupMgr, store.MetaLookup{S: st}, usersSvc)
	if err != nil {
		return fmt.Errorf("constructing role service: %w", err)
	}
	if err := rolesSvc.Load(); err != nil {
		return fmt.Errorf("loading roles: %w", err)
	}
	st.SetMetaObserver(rolesSvc)

	taxonomySvc := taxonomy.NewService(
		filepath.Join(cfg.DataDir, "terms.matrix.csv"),
		filepath.Join(cfg.DataDir, "assignments.matrix.csv"),
		backupMgr,
	)
	if err := taxonomySvc.Load(); err != nil {
		return fmt.Errorf("loading taxonomy: %w", err)
	}

	cli.SetDeps(cli.Deps{
		Config:   cfg,
		Store:    st,
		Users:    usersSvc,
		Roles:    rolesSvc,
		Taxonomy: taxonomySvc,
		Backup:   backupMgr,
	})

	return cli.Execute()
}
