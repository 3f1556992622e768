package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskpilot/internal/model"
)

const milestoneColumns = `id, project_id, name, description, due_at_unixms, color, sort_order, created_at_unixms, updated_at_unixms`

func scanMilestone(r rowScanner) (*model.Milestone, error) {
	var (
		m         model.Milestone
		due       sql.NullInt64
		createdMs int64
		updatedMs sql.NullInt64
	)
	if err := r.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Description, &due, &m.Color, &m.SortOrder, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	m.DueDate = timePtr(due)
	m.CreatedAt = fromUnixMs(createdMs)
	m.UpdatedAt = timePtr(updatedMs)
	return &m, nil
}

// CreateMilestone appends m to its project's milestone order.
func (s *Store) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return errors.New("milestone name is required")
	}
	next, err := s.NextSortOrder(ctx, KindMilestones, &m.ProjectID, nil)
	if err != nil {
		return err
	}
	m.SortOrder = next
	m.CreatedAt = s.now()
	m.UpdatedAt = nil
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones(project_id, name, description, due_at_unixms, color, sort_order, created_at_unixms)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		m.ProjectID, m.Name, m.Description, nullTime(m.DueDate), m.Color, m.SortOrder, toUnixMs(m.CreatedAt))
	if err != nil {
		return mapErr("milestone", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetMilestone(ctx context.Context, id int64) (*model.Milestone, error) {
	m, err := scanMilestone(s.db.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id))
	if err != nil {
		return nil, mapErr("milestone", err)
	}
	return m, nil
}

func (s *Store) ListMilestones(ctx context.Context, projectID int64) ([]*model.Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE project_id = ? ORDER BY sort_order ASC, id ASC`, projectID)
	if err != nil {
		return nil, mapErr("milestones", err)
	}
	defer rows.Close()
	var out []*model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, mapErr("milestones", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMilestone(ctx context.Context, m *model.Milestone) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return errors.New("milestone name is required")
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE milestones SET name = ?, description = ?, due_at_unixms = ?, color = ?, sort_order = ?, updated_at_unixms = ?
		 WHERE id = ?`,
		m.Name, m.Description, nullTime(m.DueDate), m.Color, m.SortOrder, toUnixMs(now), m.ID)
	if err != nil {
		return mapErr("milestone", err)
	}
	if err := requireAffected("milestone", res); err != nil {
		return err
	}
	m.UpdatedAt = &now
	return nil
}

// DeleteMilestone removes the milestone; its tasks stay in the project unassigned.
func (s *Store) DeleteMilestone(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id)
	if err != nil {
		return mapErr("milestone", err)
	}
	return requireAffected("milestone", res)
}
