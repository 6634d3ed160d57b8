// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

var (
	// ErrVersionConflict は更新対象の行のversionが読み取り時点から変わっていたことを示す。
	// 行が削除された場合も同じエラーになるため、呼び出し側で存在確認を行うこと。
	ErrVersionConflict = errors.New("row version conflict")

	// ErrDuplicateKey は一意制約違反（主キー、ユーザー名）を示す。
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKeyViolation は外部キー制約違反（存在しない親の参照）を示す。
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrNotFound は削除・更新対象の行が存在しないことを示す。
	ErrNotFound = errors.New("row not found")
)

// UserRepository はユーザー（認証情報ストア）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUserName はユーザー名（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByUserName(ctx context.Context, userName string) (*model.User, error)

	// CreateWithRoles はユーザーとロール所属を同一トランザクションで作成する。
	CreateWithRoles(ctx context.Context, user *model.User, roles []string) error

	// AddToRole はユーザーをロールに追加する。既に所属している場合は何もしない。
	AddToRole(ctx context.Context, userID, role string) error

	// IsInRole はユーザーがロールに所属しているかを返す。
	IsInRole(ctx context.Context, userID, role string) (bool, error)

	// RecordAccessFailure はログイン失敗回数を加算する。
	// 加算後の回数がmaxAttemptsに達した場合はlockoutEndまでロックし、回数を0に戻す。
	// 更新後のロックアウト期限（ロックされていなければnil）を返す。
	RecordAccessFailure(ctx context.Context, userID string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error)

	// ResetAccessFailures はログイン失敗回数とロックアウト期限をクリアする。
	ResetAccessFailures(ctx context.Context, userID string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// user_rolesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ProjectRepository はプロジェクトの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Project, error)

	// List は全プロジェクトを登録順（ID昇順）で返す。
	List(ctx context.Context) ([]*model.Project, error)

	// Create はプロジェクトを作成する。IDが0の場合は自動採番し、
	// 採番されたID、version、タイムスタンプをprojectに反映する。
	Create(ctx context.Context, project *model.Project) error

	// Update はidとexpectedVersionが一致する行を更新する。
	// 一致する行がない場合はErrVersionConflictを返す。
	Update(ctx context.Context, project *model.Project, expectedVersion int) error

	// Exists は指定IDのプロジェクトが存在するかを返す。
	Exists(ctx context.Context, id int64) (bool, error)

	// DeleteByID は指定IDのプロジェクトを削除し、削除した行を返す。
	// 配下のmilestones、task_itemsはCASCADE削除される。見つからない場合はnilを返す。
	DeleteByID(ctx context.Context, id int64) (*model.Project, error)
}

// MilestoneRepository はマイルストーンの永続化インターフェース。
type MilestoneRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Milestone, error)
	List(ctx context.Context) ([]*model.Milestone, error)
	Create(ctx context.Context, milestone *model.Milestone) error
	Update(ctx context.Context, milestone *model.Milestone, expectedVersion int) error
	Exists(ctx context.Context, id int64) (bool, error)

	// DeleteByID は配下のtask_itemsをCASCADE削除する。
	DeleteByID(ctx context.Context, id int64) (*model.Milestone, error)
}

// TaskItemRepository はタスクの永続化インターフェース。
type TaskItemRepository interface {
	FindByID(ctx context.Context, id int64) (*model.TaskItem, error)
	List(ctx context.Context) ([]*model.TaskItem, error)
	Create(ctx context.Context, item *model.TaskItem) error
	Update(ctx context.Context, item *model.TaskItem, expectedVersion int) error
	Exists(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) (*model.TaskItem, error)
}
