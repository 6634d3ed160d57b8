package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/token"
)

// --- モック定義 ---

type mockTokenValidator struct {
	validateFn func(raw string) (*token.Claims, error)
}

func (m *mockTokenValidator) Validate(raw string) (*token.Claims, error) {
	if m.validateFn != nil {
		return m.validateFn(raw)
	}
	return nil, token.ErrInvalidToken
}

// acceptToken は指定トークンのみ有効として扱うバリデータを返す。
func acceptToken(valid, subject string) *mockTokenValidator {
	return &mockTokenValidator{
		validateFn: func(raw string) (*token.Claims, error) {
			if raw != valid {
				return nil, fmt.Errorf("%w: signature mismatch", token.ErrInvalidToken)
			}
			return &token.Claims{
				Name:             "alice",
				RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
			}, nil
		},
	}
}

type mockSubjectParser struct {
	parseFn func(raw string) (string, error)
}

func (m *mockSubjectParser) ParseSubjectID(raw string) (string, error) {
	if m.parseFn != nil {
		return m.parseFn(raw)
	}
	return "", token.ErrMalformedToken
}

type mockAdminAuthorizer struct {
	requireAdminFn func(ctx context.Context, callerID string) error
	calls          []string
}

func (m *mockAdminAuthorizer) RequireAdmin(ctx context.Context, callerID string) error {
	m.calls = append(m.calls, callerID)
	if m.requireAdminFn != nil {
		return m.requireAdminFn(ctx, callerID)
	}
	return nil
}

func decodeJSONString(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("body is not a JSON string: %v", err)
	}
	return body
}

// --- Bearer ミドルウェアのテスト ---

func TestBearerMiddleware_ValidToken_InjectsUserIDAndToken(t *testing.T) {
	mw := NewBearerMiddleware(acceptToken("good-token", "user-123"))

	var capturedUserID, capturedToken string
	var capturedClaims *token.Claims
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		capturedToken, _ = TokenFromContext(r.Context())
		capturedClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/projects/all", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
	if capturedToken != "good-token" {
		t.Errorf("token = %q, want %q", capturedToken, "good-token")
	}
	if capturedClaims == nil || capturedClaims.Name != "alice" {
		t.Errorf("claims = %+v, want name alice", capturedClaims)
	}
}

func TestBearerMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	mw := NewBearerMiddleware(acceptToken("good-token", "user-123"))
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/projects/all", nil)
	req.Header.Set("Authorization", "bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestBearerMiddleware_RejectsMissingOrMalformedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"bearer without token", "Bearer "},
		{"bearer whitespace", "Bearer    "},
		{"token only", "good-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewBearerMiddleware(acceptToken("good-token", "user-123"))
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/projects/all", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
			}
			if got := decodeJSONString(t, resp); got != "401 Not authorized" {
				t.Errorf("body = %q, want %q", got, "401 Not authorized")
			}
			if got := resp.Header.Get("Token-expired"); got != "" {
				t.Errorf("Token-expired = %q, want empty", got)
			}
		})
	}
}

func TestBearerMiddleware_InvalidToken_Returns401WithoutExpiredHeader(t *testing.T) {
	mw := NewBearerMiddleware(acceptToken("good-token", "user-123"))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/projects/all", nil)
	req.Header.Set("Authorization", "Bearer tampered-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if got := resp.Header.Get("Token-expired"); got != "" {
		t.Errorf("Token-expired = %q, want empty", got)
	}
}

func TestBearerMiddleware_ExpiredToken_SetsTokenExpiredHeader(t *testing.T) {
	validator := &mockTokenValidator{
		validateFn: func(raw string) (*token.Claims, error) {
			return nil, fmt.Errorf("%w: exp in the past", token.ErrTokenExpired)
		},
	}
	mw := NewBearerMiddleware(validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/projects/all", nil)
	req.Header.Set("Authorization", "Bearer old-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if got := resp.Header.Get("Token-expired"); got != "true" {
		t.Errorf("Token-expired = %q, want %q", got, "true")
	}
	if got := decodeJSONString(t, resp); got != "401 Not authorized" {
		t.Errorf("body = %q, want %q", got, "401 Not authorized")
	}
}

// --- Admin ミドルウェアのテスト ---

func adminRequest(raw string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/projects/1", nil)
	if raw != "" {
		req = req.WithContext(ContextWithToken(req.Context(), raw))
	}
	return req
}

func TestAdminMiddleware_AdminCaller_PassesThrough(t *testing.T) {
	authorizer := &mockAdminAuthorizer{}
	parser := &mockSubjectParser{
		parseFn: func(raw string) (string, error) { return "admin-1", nil },
	}

	called := false
	handler := NewAdminMiddleware(authorizer, parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("admin-token"))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !called {
		t.Error("handler should have been called")
	}
	if len(authorizer.calls) != 1 || authorizer.calls[0] != "admin-1" {
		t.Errorf("RequireAdmin calls = %v, want [admin-1]", authorizer.calls)
	}
}

func TestAdminMiddleware_NonAdmin_Returns403(t *testing.T) {
	authorizer := &mockAdminAuthorizer{
		requireAdminFn: func(ctx context.Context, callerID string) error {
			return model.NewForbiddenError("not_admin")
		},
	}
	parser := &mockSubjectParser{
		parseFn: func(raw string) (string, error) { return "user-1", nil },
	}

	handler := NewAdminMiddleware(authorizer, parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("user-token"))

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if got := decodeJSONString(t, resp); got != "403 Not authorized" {
		t.Errorf("body = %q, want %q", got, "403 Not authorized")
	}
}

func TestAdminMiddleware_UnparseableSubject_Returns403(t *testing.T) {
	authorizer := &mockAdminAuthorizer{}
	parser := &mockSubjectParser{
		parseFn: func(raw string) (string, error) { return "", errors.New("no subject") },
	}

	handler := NewAdminMiddleware(authorizer, parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("weird-token"))

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if len(authorizer.calls) != 0 {
		t.Errorf("RequireAdmin should not be called, got %v", authorizer.calls)
	}
}

func TestAdminMiddleware_NoTokenInContext_Returns401(t *testing.T) {
	handler := NewAdminMiddleware(&mockAdminAuthorizer{}, &mockSubjectParser{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest(""))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- コンテキストヘルパーのテスト ---

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-456")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}

func TestTokenFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := TokenFromContext(context.Background()); err == nil {
		t.Error("expected error for missing token in context")
	}
}

func TestClaimsFromContext_NoValue_ReturnsNil(t *testing.T) {
	if claims := ClaimsFromContext(context.Background()); claims != nil {
		t.Errorf("claims = %+v, want nil", claims)
	}
}
