package store

import (
	"context"
	"database/sql"
	"strconv"
)

const schemaVersion = 1

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_types (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			parent_type_id INTEGER REFERENCES task_types(id) ON DELETE SET NULL,
			level INTEGER NOT NULL DEFAULT 0,
			color TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			default_task_type_id INTEGER REFERENCES task_types(id) ON DELETE SET NULL,
			color TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			archived INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS milestones (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_at_unixms INTEGER,
			color TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER,
			UNIQUE(project_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			parent_task_id INTEGER REFERENCES tasks(id) ON DELETE CASCADE,
			hierarchy_level INTEGER NOT NULL DEFAULT 0,
			project_id INTEGER REFERENCES projects(id) ON DELETE CASCADE,
			task_type_id INTEGER REFERENCES task_types(id) ON DELETE SET NULL,
			milestone_id INTEGER REFERENCES milestones(id) ON DELETE SET NULL,
			due_at_unixms INTEGER,
			start_at_unixms INTEGER,
			priority INTEGER NOT NULL DEFAULT 1,
			status INTEGER NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, parent_task_id, sort_order);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_milestone ON tasks(milestone_id);`,
		`CREATE INDEX IF NOT EXISTS idx_milestones_project ON milestones(project_id, sort_order);`,
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO meta(k, v) VALUES('schema_version', ?)`, strconv.Itoa(schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'schema_version'`).Scan(&v); err != nil {
		return 0, mapErr("schema version", err)
	}
	return strconv.Atoi(v)
}
