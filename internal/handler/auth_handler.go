// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
)

const userDeletedMessage = "User was deleted successfully"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, loginName, password string) (string, error)
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	DeleteUser(ctx context.Context, callerID, targetID string) error
}

// AuthHandler はログイン・登録・ユーザー削除のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login はログイン名とパスワードを検証し、トークンを返す。
// 入力形式の不備、認証情報の不一致、ロックアウトはいずれも401を返す。
// POST /authentication/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		slog.WarnContext(r.Context(), "login rejected: invalid request", slog.String("error", err.Error()))
		middleware.WriteUnauthorized(w)
		return
	}

	token, err := h.service.Login(r.Context(), req.LoginName, req.Password)
	if err != nil {
		if model.HasCode(err, model.ErrCodeInvalidCredentials) || model.HasCode(err, model.ErrCodeAccountLocked) {
			middleware.WriteUnauthorized(w)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Register は新規ユーザーを登録する。作成されたユーザーにはUSERロールが付与される。
// POST /authentication/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		handleServiceError(w, r, toValidationError(err))
		return
	}

	if _, err := h.service.Register(r.Context(), auth.RegisterInput{
		UserName: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteUser は管理者がユーザーを削除する。
// 対象が存在しなければ404、自分自身または管理者以外は403を返す。
// DELETE /authentication/users/{userId}
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "userId")
	if err := h.service.DeleteUser(r.Context(), callerID, targetID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userDeletedMessage)
}
