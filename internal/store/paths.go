package store

import "path/filepath"

func (s *Store) textPath() string    { return filepath.Join(s.dataDir, "text.csv") }
func (s *Store) routePath() string   { return filepath.Join(s.dataDir, "routes.csv") }
func (s *Store) metaPath() string    { return filepath.Join(s.dataDir, "meta.csv") }
func (s *Store) projectPath() string { return filepath.Join(s.dataDir, "project.csv") }
func (s *Store) serverPath() string  { return filepath.Join(s.dataDir, "server.csv") }
