package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
)

// RunMigrations applies all up migrations. Migrations come from cfg.MigrationsDir
// when it is set and from embedded otherwise.
func RunMigrations(cfg Config, embedded fs.FS) error {
	if cfg.Driver == DriverMemory {
		return nil
	}
	dbURL := cfg.MigrateURL()
	if cfg.Driver == DriverPostgres {
		wait := time.Duration(cfg.WaitSeconds) * time.Second
		if err := WaitForPostgres(dbURL, wait); err != nil {
			logger.MIG.Error("db not ready",
				slog.String("event", "db.migrate"),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	m, files, err := newMigrator(cfg, embedded, dbURL)
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.MIG.Info("migrations summary",
			slog.String("event", "summary"),
			slog.Uint64("version", uint64(fromVer)),
			slog.Int("applied", 0),
			slog.Duration("duration", took),
		)
		return nil
	default:
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		logger.MIG.Debug("applied files",
			slog.String("event", "apply"),
			slog.String("files", strings.Join(applied, ", ")),
		)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("version", uint64(toVer)),
		slog.Int("applied", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func newMigrator(cfg Config, embedded fs.FS, dbURL string) (*migrate.Migrate, []string, error) {
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve migrations dir: %w", err)
		}
		files := listMigrationFiles(os.DirFS(abs))
		logger.MIG.Debug("migrations resolved",
			slog.String("event", "resolve"),
			slog.String("path", abs),
			slog.Int("count", len(files)),
		)
		m, err := migrate.New("file://"+filepath.ToSlash(abs), dbURL)
		return m, files, err
	}
	if embedded == nil {
		return nil, nil, fmt.Errorf("no migrations source configured")
	}
	src, err := iofs.New(embedded, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	files := listMigrationFiles(embedded)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", "embedded"),
		slog.Int("count", len(files)),
	)
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	return m, files, err
}

func listMigrationFiles(fsys fs.FS) []string {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
