package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskpilot/internal/model"
)

const projectColumns = `id, name, description, default_task_type_id, color, sort_order, archived, created_at_unixms, updated_at_unixms`

func scanProject(r rowScanner) (*model.Project, error) {
	var (
		p         model.Project
		defType   sql.NullInt64
		archived  int
		createdMs int64
		updatedMs sql.NullInt64
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &defType, &p.Color, &p.SortOrder, &archived, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	p.DefaultTaskTypeID = idPtr(defType)
	p.Archived = archived != 0
	p.CreatedAt = fromUnixMs(createdMs)
	p.UpdatedAt = timePtr(updatedMs)
	return &p, nil
}

// CreateProject inserts p at the end of the project order and fills in its ID.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("project name is required")
	}
	next, err := s.NextSortOrder(ctx, KindProjects, nil, nil)
	if err != nil {
		return err
	}
	p.SortOrder = next
	p.CreatedAt = s.now()
	p.UpdatedAt = nil
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects(name, description, default_task_type_id, color, sort_order, archived, created_at_unixms)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, nullID(p.DefaultTaskTypeID), p.Color, p.SortOrder, boolToInt(p.Archived), toUnixMs(p.CreatedAt))
	if err != nil {
		return mapErr("project", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return nil, mapErr("project", err)
	}
	return p, nil
}

// ListProjects returns projects in sort order.
func (s *Store) ListProjects(ctx context.Context, includeArchived bool) ([]*model.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		q += ` WHERE archived = 0`
	}
	q += ` ORDER BY sort_order ASC, name ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapErr("projects", err)
	}
	defer rows.Close()
	var out []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, mapErr("projects", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("project name is required")
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, default_task_type_id = ?, color = ?, sort_order = ?, archived = ?, updated_at_unixms = ?
		 WHERE id = ?`,
		p.Name, p.Description, nullID(p.DefaultTaskTypeID), p.Color, p.SortOrder, boolToInt(p.Archived), toUnixMs(now), p.ID)
	if err != nil {
		return mapErr("project", err)
	}
	if err := requireAffected("project", res); err != nil {
		return err
	}
	p.UpdatedAt = &now
	return nil
}

func (s *Store) SetProjectArchived(ctx context.Context, id int64, archived bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET archived = ?, updated_at_unixms = ? WHERE id = ?`,
		boolToInt(archived), toUnixMs(s.now()), id)
	if err != nil {
		return mapErr("project", err)
	}
	return requireAffected("project", res)
}

// DeleteProject removes the project with its milestones and tasks.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return mapErr("project", err)
	}
	return requireAffected("project", res)
}
