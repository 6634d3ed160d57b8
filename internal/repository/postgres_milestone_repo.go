package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresMilestoneRepo はPostgreSQLを使用したマイルストーンリポジトリ。
type PostgresMilestoneRepo struct {
	db *sql.DB
}

// NewPostgresMilestoneRepo はPostgresMilestoneRepoを生成する。
func NewPostgresMilestoneRepo(db *sql.DB) *PostgresMilestoneRepo {
	return &PostgresMilestoneRepo{db: db}
}

const milestoneColumns = `id, name, description, project_id, version, created_at, updated_at`

func scanMilestone(row rowScanner) (*model.Milestone, error) {
	m := &model.Milestone{}
	var description sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &description, &m.ProjectID, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Description = nullStringValue(description)
	return m, nil
}

// FindByID は指定IDのマイルストーンを取得する。見つからない場合はnilを返す。
func (r *PostgresMilestoneRepo) FindByID(ctx context.Context, id int64) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find milestone by ID: %w", err)
	}
	return m, nil
}

// List は全マイルストーンをID昇順で返す。
func (r *PostgresMilestoneRepo) List(ctx context.Context) ([]*model.Milestone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	defer rows.Close()

	milestones := []*model.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate milestones: %w", err)
	}
	return milestones, nil
}

// Create はマイルストーンを作成する。
// project_idが存在しない場合はErrForeignKeyViolationを返す。
func (r *PostgresMilestoneRepo) Create(ctx context.Context, milestone *model.Milestone) error {
	if milestone.ID > 0 {
		return insertWithExplicitID(ctx, r.db, "milestones", func(tx *sql.Tx) error {
			return tx.QueryRowContext(ctx,
				`INSERT INTO milestones (id, name, description, project_id)
				 VALUES ($1, $2, $3, $4)
				 RETURNING version, created_at, updated_at`,
				milestone.ID, milestone.Name, nullString(milestone.Description), milestone.ProjectID,
			).Scan(&milestone.Version, &milestone.CreatedAt, &milestone.UpdatedAt)
		})
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO milestones (name, description, project_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, version, created_at, updated_at`,
		milestone.Name, nullString(milestone.Description), milestone.ProjectID,
	).Scan(&milestone.ID, &milestone.Version, &milestone.CreatedAt, &milestone.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert milestone: %w", translateError(err))
	}
	return nil
}

// Update はidとexpectedVersionが一致する行を更新する。
// 一致する行がない場合はErrVersionConflictを返す。
func (r *PostgresMilestoneRepo) Update(ctx context.Context, milestone *model.Milestone, expectedVersion int) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE milestones SET name = $3, description = $4, project_id = $5,
		        version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		milestone.ID, expectedVersion, milestone.Name, nullString(milestone.Description), milestone.ProjectID,
	).Scan(&milestone.Version, &milestone.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", translateError(err))
	}
	return nil
}

// Exists は指定IDのマイルストーンが存在するかを返す。
func (r *PostgresMilestoneRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM milestones WHERE id = $1)`, id)
}

// DeleteByID は指定IDのマイルストーンを削除し、削除した行を返す。見つからない場合はnilを返す。
func (r *PostgresMilestoneRepo) DeleteByID(ctx context.Context, id int64) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx,
		`DELETE FROM milestones WHERE id = $1 RETURNING `+milestoneColumns,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete milestone: %w", err)
	}
	return m, nil
}

// compile-time interface check
var _ MilestoneRepository = (*PostgresMilestoneRepo)(nil)
