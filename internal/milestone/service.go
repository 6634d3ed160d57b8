// Package milestone はマイルストーンのCRUDと楽観的排他制御を提供する。
// マイルストーンは必ず既存のプロジェクトに属する。
package milestone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

const (
	entityName  = "milestone"
	parentField = "projectId"
)

// Sanitizer は名前と説明からマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// ParentChecker は親プロジェクトの存在を確認する。
type ParentChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ConflictRecorder は更新競合を記録する。
type ConflictRecorder interface {
	RecordConflict(entity string)
}

// Input はマイルストーンの作成・更新の入力。
type Input struct {
	ID          int64
	Name        string
	Description string
	ProjectID   int64
	Version     int
}

// Service はマイルストーンに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.MilestoneRepository
	projects  ParentChecker
	sanitizer Sanitizer
	recorder  ConflictRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.MilestoneRepository, projects ParentChecker, sanitizer Sanitizer, recorder ConflictRecorder) *Service {
	return &Service{repo: repo, projects: projects, sanitizer: sanitizer, recorder: recorder}
}

// Create はマイルストーンを作成する。親プロジェクトが存在しない場合は検証エラーを返す。
func (s *Service) Create(ctx context.Context, in Input) (*model.Milestone, error) {
	m, err := s.build(in)
	if err != nil {
		return nil, err
	}
	m.ID = in.ID

	if err := s.ensureParent(ctx, m.ProjectID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, model.NewDuplicateIDError(entityName, in.ID)
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, model.NewParentNotFoundError(parentField, m.ProjectID)
		}
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	slog.InfoContext(ctx, "milestone created",
		slog.Int64("milestone_id", m.ID),
		slog.Int64("project_id", m.ProjectID),
	)
	return m, nil
}

// Get は指定IDのマイルストーンを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Milestone, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone: %w", err)
	}
	if m == nil {
		return nil, model.NewMilestoneNotFoundError(id)
	}
	return m, nil
}

// List は全マイルストーンを登録順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Milestone, error) {
	milestones, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// Update は可変フィールドを全て置き換える。
// 親プロジェクトを変更する場合は変更先の存在を確認する。
func (s *Service) Update(ctx context.Context, id int64, in Input) (*model.Milestone, error) {
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
	if updated.ProjectID != current.ProjectID {
		if err := s.ensureParent(ctx, updated.ProjectID); err != nil {
			return nil, err
		}
	}
	updated.CreatedAt = current.CreatedAt

	err = s.repo.Update(ctx, updated, current.Version)
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return nil, s.recheck(ctx, id)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return nil, model.NewParentNotFoundError(parentField, updated.ProjectID)
	case err != nil:
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	return updated, nil
}

// Delete はマイルストーンを削除し、削除した内容を返す。
// 配下のタスクはストアのCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, id int64) (*model.Milestone, error) {
	m, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete milestone: %w", err)
	}
	if m == nil {
		return nil, model.NewMilestoneNotFoundError(id)
	}

	slog.InfoContext(ctx, "milestone deleted", slog.Int64("milestone_id", id))
	return m, nil
}

func (s *Service) build(in Input) (*model.Milestone, error) {
	m := &model.Milestone{
		Name:        s.sanitizer.Sanitize(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
		ProjectID:   in.ProjectID,
	}
	if m.Name == "" {
		return nil, model.NewValidationError(map[string]string{"name": "cannot be blank"})
	}
	return m, nil
}

func (s *Service) ensureParent(ctx context.Context, projectID int64) error {
	ok, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !ok {
		return model.NewParentNotFoundError(parentField, projectID)
	}
	return nil
}

func (s *Service) recheck(ctx context.Context, id int64) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to recheck milestone: %w", err)
	}
	if !exists {
		return model.NewMilestoneNotFoundError(id)
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
