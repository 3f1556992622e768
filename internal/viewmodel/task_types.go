package viewmodel

import (
	"context"
	"log/slog"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

type TaskTypeStore interface {
	SortOrderWriter
	ListTaskTypes(ctx context.Context) ([]*model.TaskType, error)
}

type TaskTypes struct {
	store  TaskTypeStore
	logger *slog.Logger
	items  *orderedList[*model.TaskType]
}

func NewTaskTypes(st TaskTypeStore, logger *slog.Logger) *TaskTypes {
	return &TaskTypes{
		store:  st,
		logger: loggerOrNop(logger),
		items: newOrderedList(
			func(t *model.TaskType) int64 { return t.ID },
			func(t *model.TaskType, o int) { t.SortOrder = o },
		),
	}
}

func (v *TaskTypes) Refresh(ctx context.Context) error {
	types, err := v.store.ListTaskTypes(ctx)
	if err != nil {
		v.logger.Warn("failed to refresh task types", "err", err)
		return err
	}
	v.items.Reset(types)
	return nil
}

func (v *TaskTypes) TaskTypes() []*model.TaskType { return v.items.Items() }

func (v *TaskTypes) CanReorder() bool { return true }

func (v *TaskTypes) Items() reorder.List[*model.TaskType] { return v.items }

func (v *TaskTypes) OnReorderCompleted(ctx context.Context, t *model.TaskType, oldIndex, newIndex int) error {
	err := persistOrder(ctx, v.store, store.KindTaskTypes, v.items)
	if err != nil {
		return err
	}
	v.logger.Info("task type reordered", "type", t.Name, "from", oldIndex, "to", newIndex)
	return nil
}
