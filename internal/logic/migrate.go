package logic

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Migrator applies the embedded schema files. PostgreSQL files are tracked
// in schema_migrations and run at most once; ClickHouse files are idempotent
// DDL and run statement by statement every time.
type Migrator struct {
	pg     PgPool
	ch     driver.Conn
	logger *zap.SugaredLogger
}

func NewMigrator(pg PgPool, ch driver.Conn, logger *zap.Logger) *Migrator {
	return &Migrator{pg: pg, ch: ch, logger: logger.Sugar()}
}

func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s migrations: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Postgres runs unapplied files from dir and returns the names it applied
func (m *Migrator) Postgres(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
	if _, err := m.pg.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	rows, err := m.pg.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to load applied migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names, err := sqlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range names {
		if applied[name] {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return ran, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		m.logger.Infow("Running migration", "db", "PostgreSQL", "file", name)
		if _, err := m.pg.Exec(ctx, string(content)); err != nil {
			return ran, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := m.pg.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, name,
		); err != nil {
			return ran, fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		ran = append(ran, name)
	}
	return ran, nil
}

// ClickHouse executes every statement of every file in dir. A nil connection
// is a no-op.
func (m *Migrator) ClickHouse(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
	if m.ch == nil {
		return nil, nil
	}
	names, err := sqlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(content)) {
			if err := m.ch.Exec(ctx, stmt); err != nil {
				m.logger.Warnw("Statement failed", "db", "ClickHouse", "file", name, "statement", truncate(stmt, 50))
				return nil, fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
		}
		m.logger.Infow("Applied migration", "db", "ClickHouse", "file", name)
	}
	return names, nil
}

// splitStatements breaks a script on ';' and drops blank and comment-only pieces
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
