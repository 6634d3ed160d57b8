package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, name, description, version, created_at, updated_at`

func scanProject(row rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var name, description sql.NullString
	if err := row.Scan(&p.ID, &name, &description, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Name = nullStringValue(name)
	p.Description = nullStringValue(description)
	return p, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return p, nil
}

// List は全プロジェクトをID昇順で返す。
func (r *PostgresProjectRepo) List(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// Create はプロジェクトを作成する。
// project.IDが0より大きい場合はそのIDで登録し、シーケンスを追従させる。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	if project.ID > 0 {
		return insertWithExplicitID(ctx, r.db, "projects", func(tx *sql.Tx) error {
			return tx.QueryRowContext(ctx,
				`INSERT INTO projects (id, name, description)
				 VALUES ($1, $2, $3)
				 RETURNING version, created_at, updated_at`,
				project.ID, nullString(project.Name), nullString(project.Description),
			).Scan(&project.Version, &project.CreatedAt, &project.UpdatedAt)
		})
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO projects (name, description)
		 VALUES ($1, $2)
		 RETURNING id, version, created_at, updated_at`,
		nullString(project.Name), nullString(project.Description),
	).Scan(&project.ID, &project.Version, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", translateError(err))
	}
	return nil
}

// Update はidとexpectedVersionが一致する行の可変フィールドを置き換え、versionを進める。
// 一致する行がない場合はErrVersionConflictを返す。
func (r *PostgresProjectRepo) Update(ctx context.Context, project *model.Project, expectedVersion int) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE projects SET name = $3, description = $4, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		project.ID, expectedVersion, nullString(project.Name), nullString(project.Description),
	).Scan(&project.Version, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update project: %w", translateError(err))
	}
	return nil
}

// Exists は指定IDのプロジェクトが存在するかを返す。
func (r *PostgresProjectRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id)
}

// DeleteByID は指定IDのプロジェクトを削除し、削除した行を返す。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) DeleteByID(ctx context.Context, id int64) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`DELETE FROM projects WHERE id = $1 RETURNING `+projectColumns,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	return p, nil
}

// insertWithExplicitID は呼び出し元指定のIDでINSERTした後、
// 以降の自動採番と衝突しないようテーブルのシーケンスを最大IDまで進める。
// シーケンスは現在値より後ろには戻さない（他トランザクションが採番済みの値や
// 削除済みの末尾IDを再利用しないため）。
func insertWithExplicitID(ctx context.Context, db *sql.DB, table string, insert func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insert(tx); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, translateError(err))
	}

	// tableは内部定数のみ渡される
	_, err = tx.ExecContext(ctx,
		`WITH s AS (SELECT pg_get_serial_sequence($1, 'id')::regclass AS seq)
		 SELECT setval(s.seq, GREATEST(
		     (SELECT MAX(id) FROM `+table+`),
		     COALESCE(pg_sequence_last_value(s.seq), 0)
		 )) FROM s`,
		table,
	)
	if err != nil {
		return fmt.Errorf("failed to advance %s id sequence: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func exists(ctx context.Context, db *sql.DB, query string, id int64) (bool, error) {
	var found bool
	if err := db.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
