package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresTaskItemRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskItemRepo struct {
	db *sql.DB
}

// NewPostgresTaskItemRepo はPostgresTaskItemRepoを生成する。
func NewPostgresTaskItemRepo(db *sql.DB) *PostgresTaskItemRepo {
	return &PostgresTaskItemRepo{db: db}
}

const taskItemColumns = `id, name, description, priority, milestone_id, version, created_at, updated_at`

func scanTaskItem(row rowScanner) (*model.TaskItem, error) {
	t := &model.TaskItem{}
	var description sql.NullString
	var priority int16
	if err := row.Scan(&t.ID, &t.Name, &description, &priority, &t.MilestoneID, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Description = nullStringValue(description)
	t.Priority = model.Priority(priority)
	return t, nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskItemRepo) FindByID(ctx context.Context, id int64) (*model.TaskItem, error) {
	t, err := scanTaskItem(r.db.QueryRowContext(ctx,
		`SELECT `+taskItemColumns+` FROM task_items WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task item by ID: %w", err)
	}
	return t, nil
}

// List は全タスクをID昇順で返す。
func (r *PostgresTaskItemRepo) List(ctx context.Context) ([]*model.TaskItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskItemColumns+` FROM task_items ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list task items: %w", err)
	}
	defer rows.Close()

	items := []*model.TaskItem{}
	for rows.Next() {
		t, err := scanTaskItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task item: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task items: %w", err)
	}
	return items, nil
}

// Create はタスクを作成する。
// milestone_idが存在しない場合はErrForeignKeyViolationを返す。
func (r *PostgresTaskItemRepo) Create(ctx context.Context, item *model.TaskItem) error {
	if item.ID > 0 {
		return insertWithExplicitID(ctx, r.db, "task_items", func(tx *sql.Tx) error {
			return tx.QueryRowContext(ctx,
				`INSERT INTO task_items (id, name, description, priority, milestone_id)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING version, created_at, updated_at`,
				item.ID, item.Name, nullString(item.Description), int16(item.Priority), item.MilestoneID,
			).Scan(&item.Version, &item.CreatedAt, &item.UpdatedAt)
		})
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO task_items (name, description, priority, milestone_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, version, created_at, updated_at`,
		item.Name, nullString(item.Description), int16(item.Priority), item.MilestoneID,
	).Scan(&item.ID, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task item: %w", translateError(err))
	}
	return nil
}

// Update はidとexpectedVersionが一致する行を更新する。
// 一致する行がない場合はErrVersionConflictを返す。
func (r *PostgresTaskItemRepo) Update(ctx context.Context, item *model.TaskItem, expectedVersion int) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE task_items SET name = $3, description = $4, priority = $5, milestone_id = $6,
		        version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		item.ID, expectedVersion, item.Name, nullString(item.Description), int16(item.Priority), item.MilestoneID,
	).Scan(&item.Version, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update task item: %w", translateError(err))
	}
	return nil
}

// Exists は指定IDのタスクが存在するかを返す。
func (r *PostgresTaskItemRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM task_items WHERE id = $1)`, id)
}

// DeleteByID は指定IDのタスクを削除し、削除した行を返す。見つからない場合はnilを返す。
func (r *PostgresTaskItemRepo) DeleteByID(ctx context.Context, id int64) (*model.TaskItem, error) {
	t, err := scanTaskItem(r.db.QueryRowContext(ctx,
		`DELETE FROM task_items WHERE id = $1 RETURNING `+taskItemColumns,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete task item: %w", err)
	}
	return t, nil
}

// compile-time interface check
var _ TaskItemRepository = (*PostgresTaskItemRepo)(nil)
