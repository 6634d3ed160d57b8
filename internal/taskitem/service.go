// Package taskitem はタスクのCRUDと楽観的排他制御を提供する。
// タスクは必ず既存のマイルストーンに属する。
package taskitem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

const (
	entityName  = "taskitem"
	parentField = "milestoneId"
)

// Sanitizer は名前と説明からマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// ParentChecker は親マイルストーンの存在を確認する。
type ParentChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ConflictRecorder は更新競合を記録する。
type ConflictRecorder interface {
	RecordConflict(entity string)
}

// Input はタスクの作成・更新の入力。
type Input struct {
	ID          int64
	Name        string
	Description string
	Priority    model.Priority
	MilestoneID int64
	Version     int
}

// Service はタスクに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.TaskItemRepository
	milestones ParentChecker
	sanitizer  Sanitizer
	recorder   ConflictRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.TaskItemRepository, milestones ParentChecker, sanitizer Sanitizer, recorder ConflictRecorder) *Service {
	return &Service{repo: repo, milestones: milestones, sanitizer: sanitizer, recorder: recorder}
}

// Create はタスクを作成する。親マイルストーンが存在しない場合は検証エラーを返す。
func (s *Service) Create(ctx context.Context, in Input) (*model.TaskItem, error) {
	item, err := s.build(in)
	if err != nil {
		return nil, err
	}
	item.ID = in.ID

	if err := s.ensureParent(ctx, item.MilestoneID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, model.NewDuplicateIDError(entityName, in.ID)
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, model.NewParentNotFoundError(parentField, item.MilestoneID)
		}
		return nil, fmt.Errorf("failed to create task item: %w", err)
	}

	slog.InfoContext(ctx, "task item created",
		slog.Int64("task_item_id", item.ID),
		slog.Int64("milestone_id", item.MilestoneID),
		slog.String("priority", item.Priority.String()),
	)
	return item, nil
}

// Get は指定IDのタスクを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.TaskItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task item: %w", err)
	}
	if item == nil {
		return nil, model.NewTaskItemNotFoundError(id)
	}
	return item, nil
}

// List は全タスクを登録順で返す。
func (s *Service) List(ctx context.Context) ([]*model.TaskItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list task items: %w", err)
	}
	return items, nil
}

// Update は可変フィールドを全て置き換える。
func (s *Service) Update(ctx context.Context, id int64, in Input) (*model.TaskItem, error) {
	if in.ID != 0 && in.ID != id {
		return nil, model.NewIDMismatchError(id, in.ID)
	}

	updated, err := s.build(in)
	if err != nil {
		return nil, err
	}
	updated.ID = id

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != current.Version {
		return nil, s.conflict(ctx, id)
	}
	if updated.MilestoneID != current.MilestoneID {
		if err := s.ensureParent(ctx, updated.MilestoneID); err != nil {
			return nil, err
		}
	}
	updated.CreatedAt = current.CreatedAt

	err = s.repo.Update(ctx, updated, current.Version)
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return nil, s.recheck(ctx, id)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return nil, model.NewParentNotFoundError(parentField, updated.MilestoneID)
	case err != nil:
		return nil, fmt.Errorf("failed to update task item: %w", err)
	}

	return updated, nil
}

// Delete はタスクを削除し、削除した内容を返す。
func (s *Service) Delete(ctx context.Context, id int64) (*model.TaskItem, error) {
	item, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete task item: %w", err)
	}
	if item == nil {
		return nil, model.NewTaskItemNotFoundError(id)
	}

	slog.InfoContext(ctx, "task item deleted", slog.Int64("task_item_id", id))
	return item, nil
}

func (s *Service) build(in Input) (*model.TaskItem, error) {
	fields := map[string]string{}
	item := &model.TaskItem{
		Name:        s.sanitizer.Sanitize(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
		Priority:    in.Priority,
		MilestoneID: in.MilestoneID,
	}
	if item.Name == "" {
		fields["name"] = "cannot be blank"
	}
	if !item.Priority.IsValid() {
		fields["priority"] = "must be one of Low, Medium, High"
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}
	return item, nil
}

func (s *Service) ensureParent(ctx context.Context, milestoneID int64) error {
	ok, err := s.milestones.Exists(ctx, milestoneID)
	if err != nil {
		return fmt.Errorf("failed to check milestone: %w", err)
	}
	if !ok {
		return model.NewParentNotFoundError(parentField, milestoneID)
	}
	return nil
}

func (s *Service) recheck(ctx context.Context, id int64) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to recheck task item: %w", err)
	}
	if !exists {
		return model.NewTaskItemNotFoundError(id)
	}
	return s.conflict(ctx, id)
}

func (s *Service) conflict(ctx context.Context, id int64) error {
	slog.WarnContext(ctx, "concurrent update detected",
		slog.String("entity", entityName),
		slog.Int64("id", id),
	)
	if s.recorder != nil {
		s.recorder.RecordConflict(entityName)
	}
	return model.NewConcurrencyConflictError(entityName, id)
}
