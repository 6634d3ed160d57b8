// Package project はプロジェクトのCRUDと楽観的排他制御を提供する。
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

const entityName = "project"

// Sanitizer は名前と説明からマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// ConflictRecorder は更新競合を記録する。
type ConflictRecorder interface {
	RecordConflict(entity string)
}

// Input はプロジェクトの作成・更新の入力。
// IDは作成時のみ任意指定でき、更新時はパスのIDと一致しなければならない。
// Versionは0以外を指定した場合、現在のversionと一致しなければ競合とする。
type Input struct {
	ID          int64
	Name        string
	Description string
	Version     int
}

// Service はプロジェクトに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.ProjectRepository
	sanitizer Sanitizer
	recorder  ConflictRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.ProjectRepository, sanitizer Sanitizer, recorder ConflictRecorder) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, recorder: recorder}
}

// Create はプロジェクトを作成する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Project, error) {
	p := &model.Project{
		ID:          in.ID,
		Name:        s.sanitizer.Sanitize(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewDuplicateIDError(entityName, in.ID)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.InfoContext(ctx, "project created", slog.Int64("project_id", p.ID))
	return p, nil
}

// Get は指定IDのプロジェクトを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	return p, nil
}

// List は全プロジェクトを登録順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Update は可変フィールドを全て置き換える。
// 保存時にversionが変わっていた場合は一度だけ存在を再確認し、
// 削除済みならNotFound、存在すれば競合エラーを返す。再試行やマージは行わない。
func (s *Service) Update(ctx context.Context, id int64, in Input) (*model.Project, error) {
	if in.ID != 0 && in.ID != id {
		return nil, model.NewIDMismatchError(id, in.ID)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != current.Version {
		return nil, s.conflict(ctx, id)
	}

	updated := &model.Project{
		ID:          id,
		Name:        s.sanitizer.Sanitize(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
		CreatedAt:   current.CreatedAt,
	}

	err = s.repo.Update(ctx, updated, current.Version)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, s.recheck(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return updated, nil
}

// Delete はプロジェクトを削除し、削除した内容を返す。
// 配下のマイルストーンとタスクはストアのCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}

	slog.InfoContext(ctx, "project deleted", slog.Int64("project_id", id))
	return p, nil
}

func (s *Service) recheck(ctx context.Context, id int64) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to recheck project: %w", err)
	}
	if !exists {
		return model.NewProjectNotFoundError(id)
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
