package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskpilot/internal/model"
)

const taskTypeColumns = `id, name, parent_type_id, level, color, sort_order, created_at_unixms, updated_at_unixms`

func scanTaskType(r rowScanner) (*model.TaskType, error) {
	var (
		t         model.TaskType
		parent    sql.NullInt64
		createdMs int64
		updatedMs sql.NullInt64
	)
	if err := r.Scan(&t.ID, &t.Name, &parent, &t.Level, &t.Color, &t.SortOrder, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	t.ParentTypeID = idPtr(parent)
	t.CreatedAt = fromUnixMs(createdMs)
	t.UpdatedAt = timePtr(updatedMs)
	return &t, nil
}

// CreateTaskType appends t to the task type order. A child type sits one level below its parent.
func (s *Store) CreateTaskType(ctx context.Context, t *model.TaskType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("task type name is required")
	}
	t.Level = 0
	if t.ParentTypeID != nil {
		parent, err := s.GetTaskType(ctx, *t.ParentTypeID)
		if err != nil {
			return err
		}
		t.Level = parent.Level + 1
	}
	next, err := s.NextSortOrder(ctx, KindTaskTypes, nil, nil)
	if err != nil {
		return err
	}
	t.SortOrder = next
	t.CreatedAt = s.now()
	t.UpdatedAt = nil
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task_types(name, parent_type_id, level, color, sort_order, created_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
		t.Name, nullID(t.ParentTypeID), t.Level, t.Color, t.SortOrder, toUnixMs(t.CreatedAt))
	if err != nil {
		return mapErr("task type", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetTaskType(ctx context.Context, id int64) (*model.TaskType, error) {
	t, err := scanTaskType(s.db.QueryRowContext(ctx, `SELECT `+taskTypeColumns+` FROM task_types WHERE id = ?`, id))
	if err != nil {
		return nil, mapErr("task type", err)
	}
	return t, nil
}

func (s *Store) ListTaskTypes(ctx context.Context) ([]*model.TaskType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskTypeColumns+` FROM task_types ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, mapErr("task types", err)
	}
	defer rows.Close()
	var out []*model.TaskType
	for rows.Next() {
		t, err := scanTaskType(rows)
		if err != nil {
			return nil, mapErr("task types", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTaskType(ctx context.Context, t *model.TaskType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("task type name is required")
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE task_types SET name = ?, color = ?, sort_order = ?, updated_at_unixms = ? WHERE id = ?`,
		t.Name, t.Color, t.SortOrder, toUnixMs(now), t.ID)
	if err != nil {
		return mapErr("task type", err)
	}
	if err := requireAffected("task type", res); err != nil {
		return err
	}
	t.UpdatedAt = &now
	return nil
}

func (s *Store) DeleteTaskType(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_types WHERE id = ?`, id)
	if err != nil {
		return mapErr("task type", err)
	}
	return requireAffected("task type", res)
}
