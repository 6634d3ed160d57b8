package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, user_name, email, password_hash, access_failed_count, lockout_end, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var lockoutEnd sql.NullTime
	if err := row.Scan(
		&user.ID, &user.UserName, &user.Email, &user.PasswordHash,
		&user.AccessFailedCount, &lockoutEnd, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lockoutEnd.Valid {
		t := lockoutEnd.Time
		user.LockoutEnd = &t
	}
	return user, nil
}

// normalizeUserName はユーザー名の照合用キーを返す。
func normalizeUserName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// isUserID はidがusers.idとして比較可能な形式（UUID）かを返す。
// UUID以外の値はPostgreSQLで型エラー(22P02)になるため、問い合わせ前に弾く。
func isUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// UUIDとして解釈できないIDも「見つからない」として扱う。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !isUserID(id) {
		return nil, nil
	}
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUserName はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE normalized_user_name = $1`,
		normalizeUserName(userName),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}
	return user, nil
}

// CreateWithRoles はユーザーとロール所属を同一トランザクションで作成する。
// ユーザー名が重複している場合はErrDuplicateKeyを返す。
func (r *PostgresUserRepo) CreateWithRoles(ctx context.Context, user *model.User, roles []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, user_name, normalized_user_name, email, password_hash,
		                    access_failed_count, lockout_end, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, NULL, $6, $7)`,
		user.ID, user.UserName, normalizeUserName(user.UserName), user.Email, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}

	for _, role := range roles {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			user.ID, role,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user role %s: %w", role, translateError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddToRole はユーザーをロールに追加する。既に所属している場合は何もしない。
func (r *PostgresUserRepo) AddToRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to add user to role: %w", translateError(err))
	}
	return nil
}

// IsInRole はユーザーがロールに所属しているかを返す。
func (r *PostgresUserRepo) IsInRole(ctx context.Context, userID, role string) (bool, error) {
	if !isUserID(userID) {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_name = $2)`,
		userID, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user role: %w", err)
	}
	return exists, nil
}

// RecordAccessFailure はログイン失敗回数を加算し、上限に達した場合はロックする。
// 加算とロック判定は単一のUPDATE文で行う。
func (r *PostgresUserRepo) RecordAccessFailure(ctx context.Context, userID string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error) {
	var end sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET
		     lockout_end = CASE WHEN access_failed_count + 1 >= $2 THEN $3 ELSE lockout_end END,
		     access_failed_count = CASE WHEN access_failed_count + 1 >= $2 THEN 0 ELSE access_failed_count + 1 END,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING lockout_end`,
		userID, maxAttempts, lockoutEnd,
	).Scan(&end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record access failure: %w", err)
	}
	if !end.Valid {
		return nil, nil
	}
	t := end.Time
	return &t, nil
}

// ResetAccessFailures はログイン失敗回数とロックアウト期限をクリアする。
func (r *PostgresUserRepo) ResetAccessFailures(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_failed_count = 0, lockout_end = NULL, updated_at = NOW()
		 WHERE id = $1 AND (access_failed_count <> 0 OR lockout_end IS NOT NULL)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset access failures: %w", err)
	}
	return nil
}

// ClearExpiredLockouts はロックアウト期限がbefore以前のユーザーのロックを解除する。
// 解除した件数を返す。
func (r *PostgresUserRepo) ClearExpiredLockouts(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET lockout_end = NULL, updated_at = NOW()
		 WHERE lockout_end IS NOT NULL AND lockout_end <= $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired lockouts: %w", err)
	}
	return result.RowsAffected()
}

// DeleteByID は指定IDのユーザーを削除する。
// user_rolesはCASCADE削除される。対象がない場合はErrNotFoundを返す。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	if !isUserID(id) {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
