// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, resource, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // 入力検証エラーのフィールド別メッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeAccountLocked       = "ACCOUNT_LOCKED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDuplicateUserName   = "DUPLICATE_USER_NAME"
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeIDMismatch          = "ID_MISMATCH"
	ErrCodeProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrCodeMilestoneNotFound   = "MILESTONE_NOT_FOUND"
	ErrCodeTaskItemNotFound    = "TASK_ITEM_NOT_FOUND"
	ErrCodeParentNotFound      = "PARENT_NOT_FOUND"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeDuplicateID         = "DUPLICATE_ID"
)

// HasCode はerrがAPIErrorで、指定コードを持つかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ログイン名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewAccountLockedError はアカウントロックアウトエラーを生成する。
func NewAccountLockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountLocked,
		Message:  "ログイン失敗が続いたため、アカウントが一時的にロックされています。",
		Category: "auth",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewDuplicateUserNameError はユーザー名重複エラーを生成する。
func NewDuplicateUserNameError(userName string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUserName,
		Message:  fmt.Sprintf("ユーザー名 '%s' は既に使用されています。", userName),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
		Fields:   map[string]string{"username": "already taken"},
	}
}

// NewValidationError は入力検証エラーを生成する。fieldsにはフィールド別のメッセージを渡す。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラー内容を確認してください。",
		Fields:   fields,
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewIDMismatchError はパスとボディのIDが一致しない場合のエラーを生成する。
func NewIDMismatchError(pathID, bodyID int64) *APIError {
	return &APIError{
		Code:     ErrCodeIDMismatch,
		Message:  fmt.Sprintf("URLのID(%d)とボディのID(%d)が一致しません。", pathID, bodyID),
		Category: "validation",
		Action:   "ボディのidを省略するか、URLと同じIDを指定してください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %d", id),
		Category: "resource",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewMilestoneNotFoundError はマイルストーン未検出エラーを生成する。
func NewMilestoneNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeMilestoneNotFound,
		Message:  fmt.Sprintf("指定されたマイルストーンが見つかりません: %d", id),
		Category: "resource",
		Action:   "マイルストーンIDを確認してください。",
	}
}

// NewTaskItemNotFoundError はタスク未検出エラーを生成する。
func NewTaskItemNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeTaskItemNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %d", id),
		Category: "resource",
		Action:   "タスクIDを確認してください。",
	}
}

// NewParentNotFoundError は親リソースが存在しない場合のエラーを生成する。
// field は親を参照するリクエストフィールド名（projectId, milestoneId）。
func NewParentNotFoundError(field string, parentID int64) *APIError {
	return &APIError{
		Code:     ErrCodeParentNotFound,
		Message:  fmt.Sprintf("参照先が存在しません: %s=%d", field, parentID),
		Category: "validation",
		Action:   "存在する親リソースのIDを指定してください。",
		Fields:   map[string]string{field: "does not reference an existing record"},
	}
}

// NewConcurrencyConflictError は楽観的排他制御の競合エラーを生成する。
func NewConcurrencyConflictError(entity string, id int64) *APIError {
	return &APIError{
		Code:     ErrCodeConcurrencyConflict,
		Message:  fmt.Sprintf("%s(%d) は他のリクエストによって更新されました。", entity, id),
		Category: "resource",
		Action:   "最新の内容を取得してから再度更新してください。",
	}
}

// NewDuplicateIDError は指定IDが既に使われている場合のエラーを生成する。
func NewDuplicateIDError(entity string, id int64) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateID,
		Message:  fmt.Sprintf("%s のID %d は既に使用されています。", entity, id),
		Category: "resource",
		Action:   "idを省略して自動採番を利用してください。",
	}
}
