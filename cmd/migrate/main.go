package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"agency_messaging/internal/config"
	"agency_messaging/pkg/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [command]

Commands:
  (default)   применить новые миграции
  down        откатить все миграции в обратном порядке
  fresh       откатить все и применить заново`)
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.Log.Level)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	dir := findMigrationDir()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	m := &migrator{pool: pool, dir: dir, log: appLogger}
	switch cmd {
	case "":
		err = m.up(ctx)
	case "down":
		err = m.down(ctx)
	case "fresh":
		if err = m.down(ctx); err == nil {
			err = m.up(ctx)
		}
	default:
		usage()
	}
	if err != nil {
		appLogger.Fatal("Migration failed", "error", err)
	}
}

func findMigrationDir() string {
	dir := "migrations"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = "../migrations"
	}
	return dir
}

// collectFiles возвращает отсортированные имена файлов с суффиксом suffix
func collectFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

type migrator struct {
	pool *pgxpool.Pool
	dir  string
	log  logger.Logger
}

func (m *migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

func (m *migrator) up(ctx context.Context) error {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return err
	}

	files, err := collectFiles(m.dir, ".up.sql")
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		name := strings.TrimSuffix(filename, ".up.sql")

		var exists bool
		if err := m.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name=$1)", name).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if exists {
			continue
		}

		sql, err := os.ReadFile(filepath.Join(m.dir, filename))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := m.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := m.pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		applied++
		m.log.Info("Migration applied", "migration", name)
	}

	if applied == 0 {
		m.log.Info("All migrations already applied")
	} else {
		m.log.Info("Migrations completed", "count", applied)
	}
	return nil
}

func (m *migrator) down(ctx context.Context) error {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return err
	}

	files, err := collectFiles(m.dir, ".down.sql")
	if err != nil {
		return err
	}

	for i := len(files) - 1; i >= 0; i-- {
		name := strings.TrimSuffix(files[i], ".down.sql")
		sql, err := os.ReadFile(filepath.Join(m.dir, files[i]))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := m.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("revert migration %s: %w", name, err)
		}
		if _, err := m.pool.Exec(ctx, "DELETE FROM schema_migrations WHERE name=$1", name); err != nil {
			return fmt.Errorf("unrecord migration %s: %w", name, err)
		}
		m.log.Info("Migration reverted", "migration", name)
	}
	return nil
}
