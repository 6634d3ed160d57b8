// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/taskboard/internal/token"
)

const (
	bearerPrefix       = "Bearer "
	tokenExpiredHeader = "Token-expired"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// tokenContextKey は検証済みの生トークンを格納するためのキー。
	tokenContextKey = contextKey("token")
	// claimsContextKey は検証済みクレームを格納するためのキー。
	claimsContextKey = contextKey("claims")
)

// TokenValidator はトークン検証に必要なインターフェース。
type TokenValidator interface {
	Validate(raw string) (*token.Claims, error)
}

// SubjectParser は生トークンからsubjectを取り出す。
type SubjectParser interface {
	ParseSubjectID(raw string) (string, error)
}

// AdminAuthorizer は呼び出し元がADMINロールを持つかを判定する。
type AdminAuthorizer interface {
	RequireAdmin(ctx context.Context, callerID string) error
}

// NewBearerMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 検証に成功するとユーザーID、クレーム、生トークンをコンテキストに注入する。
// 失敗時は401を返し、期限切れの場合は Token-expired: true ヘッダーを付与する。
func NewBearerMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					w.Header().Set(tokenExpiredHeader, "true")
				}
				slog.Debug("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteUnauthorized(w)
				return
			}

			setLogUserID(r.Context(), claims.Subject)

			ctx := context.WithValue(r.Context(), userIDContextKey, claims.Subject)
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			ctx = context.WithValue(ctx, tokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware はADMINロールを要求するミドルウェアを返す。
// NewBearerMiddlewareの後に配置する。呼び出し元は生トークンのsubjectから解決し、
// ロールはリクエストごとにストアから参照する。拒否時は403を返す。
func NewAdminMiddleware(authorizer AdminAuthorizer, parser SubjectParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := TokenFromContext(r.Context())
			if err != nil {
				WriteUnauthorized(w)
				return
			}

			callerID, err := parser.ParseSubjectID(raw)
			if err != nil {
				WriteForbidden(w)
				return
			}

			if err := authorizer.RequireAdmin(r.Context(), callerID); err != nil {
				WriteForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// Bearerミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// TokenFromContext は検証済みの生トークンを取得する。
func TokenFromContext(ctx context.Context) (string, error) {
	raw, ok := ctx.Value(tokenContextKey).(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("token not found in context")
	}
	return raw, nil
}

// ContextWithToken はコンテキストに生トークンを注入する。
func ContextWithToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenContextKey, raw)
}

// ClaimsFromContext は検証済みクレームを取得する。存在しない場合はnilを返す。
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*token.Claims)
	return claims
}
