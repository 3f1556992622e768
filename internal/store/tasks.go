package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskpilot/internal/model"
)

const taskColumns = `id, title, description, parent_task_id, hierarchy_level, project_id, task_type_id, milestone_id,
	due_at_unixms, start_at_unixms, priority, status, sort_order, created_at_unixms, updated_at_unixms`

func scanTask(r rowScanner) (*model.Task, error) {
	var (
		t                               model.Task
		parent, project, typ, milestone sql.NullInt64
		due, start                      sql.NullInt64
		createdMs                       int64
		updatedMs                       sql.NullInt64
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &parent, &t.HierarchyLevel, &project, &typ, &milestone,
		&due, &start, &t.Priority, &t.Status, &t.SortOrder, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	t.ParentTaskID = idPtr(parent)
	t.ProjectID = idPtr(project)
	t.TaskTypeID = idPtr(typ)
	t.MilestoneID = idPtr(milestone)
	t.DueDate = timePtr(due)
	t.StartDate = timePtr(start)
	t.CreatedAt = fromUnixMs(createdMs)
	t.UpdatedAt = timePtr(updatedMs)
	return &t, nil
}

func (s *Store) queryTasks(ctx context.Context, where string, args ...any) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY sort_order ASC, id ASC`, args...)
	if err != nil {
		return nil, mapErr("tasks", err)
	}
	defer rows.Close()
	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapErr("tasks", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTask inserts t at the end of its sibling list and fills in its ID.
// A subtask inherits its parent's project and sits one level deeper.
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("task title is required")
	}
	t.HierarchyLevel = 0
	if t.ParentTaskID != nil {
		parent, err := s.GetTask(ctx, *t.ParentTaskID)
		if err != nil {
			return err
		}
		t.HierarchyLevel = parent.HierarchyLevel + 1
		if t.ProjectID == nil {
			t.ProjectID = parent.ProjectID
		}
	}
	next, err := s.NextSortOrder(ctx, KindTasks, t.ProjectID, t.ParentTaskID)
	if err != nil {
		return err
	}
	t.SortOrder = next
	t.CreatedAt = s.now()
	t.UpdatedAt = nil
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(title, description, parent_task_id, hierarchy_level, project_id, task_type_id, milestone_id,
			due_at_unixms, start_at_unixms, priority, status, sort_order, created_at_unixms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, nullID(t.ParentTaskID), t.HierarchyLevel, nullID(t.ProjectID), nullID(t.TaskTypeID), nullID(t.MilestoneID),
		nullTime(t.DueDate), nullTime(t.StartDate), int(t.Priority), int(t.Status), t.SortOrder, toUnixMs(t.CreatedAt))
	if err != nil {
		return mapErr("task", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, mapErr("task", err)
	}
	return t, nil
}

// ListTasksByProject returns the project's top-level tasks in sort order, with SubTasks loaded.
func (s *Store) ListTasksByProject(ctx context.Context, projectID int64) ([]*model.Task, error) {
	top, err := s.queryTasks(ctx, `project_id = ? AND parent_task_id IS NULL`, projectID)
	if err != nil {
		return nil, err
	}
	subs, err := s.queryTasks(ctx, `project_id = ? AND parent_task_id IS NOT NULL`, projectID)
	if err != nil {
		return nil, err
	}
	byParent := map[int64][]*model.Task{}
	for _, st := range subs {
		byParent[*st.ParentTaskID] = append(byParent[*st.ParentTaskID], st)
	}
	for _, t := range top {
		t.SubTasks = byParent[t.ID]
	}
	return top, nil
}

func (s *Store) ListSubTasks(ctx context.Context, parentID int64) ([]*model.Task, error) {
	return s.queryTasks(ctx, `parent_task_id = ?`, parentID)
}

func (s *Store) ListTasksByMilestone(ctx context.Context, milestoneID int64) ([]*model.Task, error) {
	return s.queryTasks(ctx, `milestone_id = ?`, milestoneID)
}

func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("task title is required")
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, task_type_id = ?, milestone_id = ?, due_at_unixms = ?, start_at_unixms = ?,
			priority = ?, status = ?, sort_order = ?, updated_at_unixms = ?
		 WHERE id = ?`,
		t.Title, t.Description, nullID(t.TaskTypeID), nullID(t.MilestoneID), nullTime(t.DueDate), nullTime(t.StartDate),
		int(t.Priority), int(t.Status), t.SortOrder, toUnixMs(now), t.ID)
	if err != nil {
		return mapErr("task", err)
	}
	if err := requireAffected("task", res); err != nil {
		return err
	}
	t.UpdatedAt = &now
	return nil
}

func (s *Store) SetTaskStatus(ctx context.Context, id int64, status model.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at_unixms = ? WHERE id = ?`,
		int(status), toUnixMs(s.now()), id)
	if err != nil {
		return mapErr("task", err)
	}
	return requireAffected("task", res)
}

// DeleteTask removes the task and its subtasks.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return mapErr("task", err)
	}
	return requireAffected("task", res)
}
