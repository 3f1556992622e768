package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Kind names a sortable entity table.
type Kind string

const (
	KindProjects   Kind = "projects"
	KindTasks      Kind = "tasks"
	KindMilestones Kind = "milestones"
	KindTaskTypes  Kind = "task_types"
)

func (k Kind) table() (string, error) {
	switch k {
	case KindProjects, KindTasks, KindMilestones, KindTaskTypes:
		return string(k), nil
	}
	return "", fmt.Errorf("unknown sortable kind %q", string(k))
}

// ParseKind accepts table names and the CLI nouns (project, task, milestone, type).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "projects", "project":
		return KindProjects, nil
	case "tasks", "task":
		return KindTasks, nil
	case "milestones", "milestone":
		return KindMilestones, nil
	case "task_types", "task-types", "types", "type":
		return KindTaskTypes, nil
	}
	return "", fmt.Errorf("unknown sortable kind %q", s)
}

// NextSortOrder returns the sort order that appends a new row to the end of its list.
//
// scope narrows the list: the project for tasks and milestones, unused otherwise.
// Top-level tasks and subtasks are separate lists; parent selects which one.
func (s *Store) NextSortOrder(ctx context.Context, kind Kind, scope, parent *int64) (int, error) {
	table, err := kind.table()
	if err != nil {
		return 0, err
	}
	q := `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM ` + table
	var args []any
	switch kind {
	case KindTasks:
		q += ` WHERE project_id IS ? AND parent_task_id IS ?`
		args = append(args, nullID(scope), nullID(parent))
	case KindMilestones:
		q += ` WHERE project_id IS ?`
		args = append(args, nullID(scope))
	}
	var next int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&next); err != nil {
		return 0, mapErr(string(kind), err)
	}
	return next, nil
}

// ApplySortOrders writes every id's new sort order in one transaction. Only rows whose
// order changes get a new updated_at. A missing id rolls the whole batch back with ErrNotFound.
func (s *Store) ApplySortOrders(ctx context.Context, kind Kind, orders map[int64]int) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE `+table+` SET
		updated_at_unixms = CASE WHEN sort_order = ?1 THEN updated_at_unixms ELSE ?2 END,
		sort_order = ?1
		WHERE id = ?3`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := toUnixMs(s.now())
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, orders[id], now, id)
		if err != nil {
			return mapErr(string(kind), err)
		}
		if err := requireAffected(fmt.Sprintf("%s %d", kind, id), res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PlanSortOrders numbers a list densely in its displayed order: each id takes its index
// as its sort order. Stored orders can have gaps (deletes leave holes and appends use
// MAX+1), so a move rewrites the whole list rather than only the window it crossed;
// ApplySortOrders leaves rows whose order is already right untouched.
func PlanSortOrders(ids []int64) map[int64]int {
	out := make(map[int64]int, len(ids))
	for i, id := range ids {
		out[id] = i
	}
	return out
}
