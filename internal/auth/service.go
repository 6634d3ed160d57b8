// Package auth はログイン、ユーザー登録、ユーザー削除と、アクション単位の認可ルールを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/security"
)

// ログイン結果（メトリクスのラベルにも使用する）
const (
	LoginResultSuccess            = "success"
	LoginResultInvalidCredentials = "invalid_credentials"
	LoginResultLocked             = "locked"
)

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer はユーザーのベアラートークンを発行する。
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// LoginRecorder はログイン結果を記録する。
type LoginRecorder interface {
	RecordLogin(result string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	MaxFailedAttempts int           // ロックアウトまでの連続失敗回数
	LockoutDuration   time.Duration // ロックアウト期間
}

// DefaultServiceConfig はデフォルト設定を返す。
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   5 * time.Minute,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	UserName string
	Email    string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	policy   *Policy
	config   ServiceConfig
	recorder LoginRecorder
	now      func() time.Time
}

// ServiceOption はServiceの任意設定。
type ServiceOption func(*Service)

// WithLoginRecorder はログイン結果の記録先を設定する。
func WithLoginRecorder(r LoginRecorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	policy *Policy,
	config ServiceConfig,
	opts ...ServiceOption,
) *Service {
	if config.MaxFailedAttempts <= 0 {
		config.MaxFailedAttempts = DefaultServiceConfig().MaxFailedAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultServiceConfig().LockoutDuration
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login はログイン名とパスワードを検証し、トークンを発行する。
// ユーザー不在とパスワード不一致は同じエラーを返す。
// 連続失敗が上限に達したアカウントは一定期間ロックされる。
func (s *Service) Login(ctx context.Context, loginName, password string) (string, error) {
	user, err := s.users.FindByUserName(ctx, loginName)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.record(LoginResultInvalidCredentials)
		slog.WarnContext(ctx, "login failed: unknown user")
		return "", model.NewInvalidCredentialsError()
	}

	now := s.now()
	if user.IsLockedOut(now) {
		s.record(LoginResultLocked)
		slog.WarnContext(ctx, "login rejected: account locked",
			slog.String("user_id", user.ID),
			slog.Time("lockout_end", *user.LockoutEnd),
		)
		return "", model.NewAccountLockedError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			return "", fmt.Errorf("failed to verify password: %w", err)
		}
		return "", s.handleFailedPassword(ctx, user, now)
	}

	if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
		if err := s.users.ResetAccessFailures(ctx, user.ID); err != nil {
			return "", fmt.Errorf("failed to reset access failures: %w", err)
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.record(LoginResultSuccess)
	slog.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return token, nil
}

func (s *Service) handleFailedPassword(ctx context.Context, user *model.User, now time.Time) error {
	lockoutEnd, err := s.users.RecordAccessFailure(ctx, user.ID, s.config.MaxFailedAttempts, now.Add(s.config.LockoutDuration))
	if err != nil {
		return fmt.Errorf("failed to record access failure: %w", err)
	}

	if lockoutEnd != nil && lockoutEnd.After(now) {
		s.record(LoginResultLocked)
		slog.WarnContext(ctx, "account locked after repeated login failures",
			slog.String("user_id", user.ID),
			slog.Time("lockout_end", *lockoutEnd),
		)
		return model.NewAccountLockedError()
	}

	s.record(LoginResultInvalidCredentials)
	slog.WarnContext(ctx, "login failed: password mismatch", slog.String("user_id", user.ID))
	return model.NewInvalidCredentialsError()
}

// Register は新しいユーザーを作成し、USERロールを付与する。
// 入力形式とパスワード強度の検証は呼び出し元で済ませていること。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	return s.createUser(ctx, input, []string{model.RoleUser})
}

func (s *Service) createUser(ctx context.Context, input RegisterInput, roles []string) (*model.User, error) {
	existing, err := s.users.FindByUserName(ctx, input.UserName)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserNameError(input.UserName)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		UserName:     input.UserName,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateWithRoles(ctx, user, roles); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewDuplicateUserNameError(input.UserName)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.Any("roles", roles),
	)
	return user, nil
}

// DeleteUser は管理者がユーザーを削除する。
// 対象の存在確認、自己削除の禁止、管理者判定の順に評価する。
func (s *Service) DeleteUser(ctx context.Context, callerID, targetID string) error {
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError(targetID)
	}

	if err := s.policy.AuthorizeUserDeletion(ctx, callerID, targetID); err != nil {
		return err
	}

	if err := s.users.DeleteByID(ctx, targetID); err != nil {
		// 確認後に他のリクエストで削除された場合
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError(targetID)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.InfoContext(ctx, "user deleted",
		slog.String("user_id", targetID),
		slog.String("deleted_by", callerID),
	)
	return nil
}

// EnsureAdmin は管理者アカウントが存在することを保証する。
// 同名ユーザーが既に存在する場合はADMINロールの付与のみ行う（冪等）。
func (s *Service) EnsureAdmin(ctx context.Context, input RegisterInput) (*model.User, error) {
	existing, err := s.users.FindByUserName(ctx, input.UserName)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		if err := s.users.AddToRole(ctx, existing.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to grant admin role: %w", err)
		}
		return existing, nil
	}

	return s.createUser(ctx, input, []string{model.RoleUser, model.RoleAdmin})
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(result)
	}
}
