package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
)

// 入力長の上限。
const (
	maxUserNameLength    = 256
	maxEmailLength       = 256
	maxPasswordLength    = 128
	maxNameLength        = 200
	maxDescriptionLength = 2000
)

// --- 認証 ---

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	LoginName string `json:"loginName"`
	Password  string `json:"password"`
}

// Validate は入力形式を検証する。
func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LoginName, validation.Required, validation.Length(1, maxUserNameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPasswordLength)),
	)
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate は入力形式とパスワード強度を検証する。
func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, maxUserNameLength)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLength), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPasswordLength), security.PasswordPolicy),
	)
}

// tokenResponse はログイン成功時のレスポンス。
type tokenResponse struct {
	Token string `json:"token"`
}

// --- プロジェクト ---

// projectRequest はプロジェクト作成・更新リクエストのボディ。
// versionを指定した場合は更新時に楽観的排他制御の比較に使う。
type projectRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     int    `json:"version"`
}

// Validate は入力形式を検証する。
func (r projectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Min(0)),
		validation.Field(&r.Name, validation.Length(0, maxNameLength)),
		validation.Field(&r.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&r.Version, validation.Min(0)),
	)
}

type projectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// --- マイルストーン ---

// milestoneRequest はマイルストーン作成・更新リクエストのボディ。
type milestoneRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   int64  `json:"projectId"`
	Version     int    `json:"version"`
}

// Validate は入力形式を検証する。
func (r milestoneRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Min(0)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&r.ProjectID, validation.Required, validation.Min(1)),
		validation.Field(&r.Version, validation.Min(0)),
	)
}

type milestoneResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProjectID   int64     `json:"projectId"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toMilestoneResponse(m *model.Milestone) milestoneResponse {
	return milestoneResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ProjectID:   m.ProjectID,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// --- タスク ---

// priorityValue はJSON上の優先度。名前（"Low"など）と数値（0〜2）の両方を受け付ける。
type priorityValue model.Priority

// UnmarshalJSON は名前または数値から優先度を読み込む。
// 範囲外の数値はそのまま保持し、検証で弾く。
func (p *priorityValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := model.ParsePriority(name)
		if err != nil {
			return err
		}
		*p = priorityValue(parsed)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("priority must be a name or an integer: %w", err)
	}
	*p = priorityValue(n)
	return nil
}

// taskItemRequest はタスク作成・更新リクエストのボディ。
type taskItemRequest struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Priority    priorityValue `json:"priority"`
	MilestoneID int64         `json:"milestoneId"`
	Version     int           `json:"version"`
}

// Validate は入力形式を検証する。
func (r taskItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Min(0)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&r.Priority, validation.By(validPriority)),
		validation.Field(&r.MilestoneID, validation.Required, validation.Min(1)),
		validation.Field(&r.Version, validation.Min(0)),
	)
}

func validPriority(value interface{}) error {
	p, ok := value.(priorityValue)
	if !ok {
		return errors.New("must be a priority")
	}
	if !model.Priority(p).IsValid() {
		return errors.New("must be one of Low, Medium, High")
	}
	return nil
}

type taskItemResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	MilestoneID int64     `json:"milestoneId"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskItemResponse(t *model.TaskItem) taskItemResponse {
	return taskItemResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Priority:    t.Priority.String(),
		MilestoneID: t.MilestoneID,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// --- 検証エラー変換 ---

// validationFields はozzo-validationのエラーをフィールド別メッセージに変換する。
// フィールド単位の検証エラーでない場合はfalseを返す。
func validationFields(err error) (map[string]string, bool) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil, false
	}
	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return fields, true
}

// toValidationError は検証エラーをAPIErrorに変換する。
func toValidationError(err error) error {
	if fields, ok := validationFields(err); ok {
		return model.NewValidationError(fields)
	}
	return fmt.Errorf("failed to validate request: %w", err)
}
