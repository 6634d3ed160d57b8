package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/model"
)

// 認可拒否の理由（メトリクスのラベルにも使用する）
const (
	DenyReasonNotAdmin    = "not_admin"
	DenyReasonSelfTarget  = "self_target"
	DenyReasonUnknownUser = "unknown_user"
	DenyReasonLookupError = "lookup_error"
)

// RoleLookup は認可判定に必要なユーザー参照操作。
type RoleLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	IsInRole(ctx context.Context, userID, role string) (bool, error)
}

// DenialRecorder は認可拒否を記録する。
type DenialRecorder interface {
	RecordAuthzDenial(reason string)
}

// Policy はアクション単位の認可ルールを評価する。
// ロール所属はトークンに含めず、評価のたびに認証情報ストアから取得する。
type Policy struct {
	users    RoleLookup
	recorder DenialRecorder
}

// NewPolicy はPolicyを生成する。recorderはnilでもよい。
func NewPolicy(users RoleLookup, recorder DenialRecorder) *Policy {
	return &Policy{users: users, recorder: recorder}
}

// RequireAdmin は呼び出し元がADMINロールに所属していることを要求する。
// ユーザーが見つからない場合や参照に失敗した場合も拒否する。
func (p *Policy) RequireAdmin(ctx context.Context, callerID string) error {
	if callerID == "" {
		return p.deny(ctx, DenyReasonUnknownUser, callerID)
	}

	user, err := p.users.FindByID(ctx, callerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to look up caller for authorization",
			slog.String("user_id", callerID),
			slog.String("error", err.Error()),
		)
		return p.deny(ctx, DenyReasonLookupError, callerID)
	}
	if user == nil {
		return p.deny(ctx, DenyReasonUnknownUser, callerID)
	}

	isAdmin, err := p.users.IsInRole(ctx, user.ID, model.RoleAdmin)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check caller role",
			slog.String("user_id", callerID),
			slog.String("error", err.Error()),
		)
		return p.deny(ctx, DenyReasonLookupError, callerID)
	}
	if !isAdmin {
		return p.deny(ctx, DenyReasonNotAdmin, callerID)
	}
	return nil
}

// ForbidSelfTarget は呼び出し元が自分自身を対象にする操作を拒否する。
func (p *Policy) ForbidSelfTarget(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return p.deny(ctx, DenyReasonSelfTarget, callerID)
	}
	return nil
}

// AuthorizeUserDeletion はユーザー削除の認可を行う。
// 自己削除の判定を先に行い、次に管理者判定を行う。
func (p *Policy) AuthorizeUserDeletion(ctx context.Context, callerID, targetID string) error {
	if err := p.ForbidSelfTarget(ctx, callerID, targetID); err != nil {
		return err
	}
	return p.RequireAdmin(ctx, callerID)
}

func (p *Policy) deny(ctx context.Context, reason, callerID string) error {
	slog.WarnContext(ctx, "authorization denied",
		slog.String("reason", reason),
		slog.String("user_id", callerID),
	)
	if p.recorder != nil {
		p.recorder.RecordAuthzDenial(reason)
	}
	return model.NewForbiddenError(reason)
}
