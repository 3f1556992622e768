package viewmodel

import (
	"context"
	"log/slog"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

type MilestoneStore interface {
	SortOrderWriter
	ListMilestones(ctx context.Context, projectID int64) ([]*model.Milestone, error)
}

// Milestones lists one project's milestones in stored order. It is always reorderable.
type Milestones struct {
	store     MilestoneStore
	logger    *slog.Logger
	projectID int64
	items     *orderedList[*model.Milestone]
}

func NewMilestones(st MilestoneStore, projectID int64, logger *slog.Logger) *Milestones {
	return &Milestones{
		store:     st,
		logger:    loggerOrNop(logger),
		projectID: projectID,
		items: newOrderedList(
			func(ms *model.Milestone) int64 { return ms.ID },
			func(ms *model.Milestone, o int) { ms.SortOrder = o },
		),
	}
}

func (m *Milestones) ProjectID() int64 { return m.projectID }

func (m *Milestones) Refresh(ctx context.Context) error {
	ms, err := m.store.ListMilestones(ctx, m.projectID)
	if err != nil {
		m.logger.Warn("failed to refresh milestones", "project_id", m.projectID, "err", err)
		return err
	}
	m.items.Reset(ms)
	return nil
}

func (m *Milestones) Milestones() []*model.Milestone { return m.items.Items() }

func (m *Milestones) CanReorder() bool { return true }

func (m *Milestones) Items() reorder.List[*model.Milestone] { return m.items }

func (m *Milestones) OnReorderCompleted(ctx context.Context, ms *model.Milestone, oldIndex, newIndex int) error {
	err := persistOrder(ctx, m.store, store.KindMilestones, m.items)
	if err != nil {
		return err
	}
	m.logger.Info("milestone reordered", "milestone", ms.Name, "from", oldIndex, "to", newIndex)
	return nil
}
