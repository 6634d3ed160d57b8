package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/model"
)

// --- POST /authentication/login ---

func TestAuthHandler_Login_Success_ReturnsToken(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, loginName, password string) (string, error) {
			if loginName != "alice" || password != "Secret#123" {
				t.Errorf("Login(%q, %q), want (alice, Secret#123)", loginName, password)
			}
			return "signed-token", nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/authentication/login",
		strings.NewReader(`{"loginName":"alice","password":"Secret#123"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"token":"signed-token"`) {
		t.Errorf("body = %s, want token field", w.Body.String())
	}
}

func TestAuthHandler_Login_Failures_Return401(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"invalid credentials", `{"loginName":"alice","password":"wrong"}`, model.NewInvalidCredentialsError()},
		{"locked out", `{"loginName":"alice","password":"Secret#123"}`, model.NewAccountLockedError()},
		{"missing password", `{"loginName":"alice"}`, nil},
		{"missing login name", `{"password":"Secret#123"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFn: func(ctx context.Context, loginName, password string) (string, error) {
					if tt.err == nil {
						t.Fatal("Login should not be called for invalid input")
					}
					return "", tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/authentication/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Login(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := parseJSONString(t, w); got != "401 Not authorized" {
				t.Errorf("body = %q, want %q", got, "401 Not authorized")
			}
		})
	}
}

func TestAuthHandler_Login_MalformedJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/authentication/login", strings.NewReader(`{"loginName":`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
	}
}

func TestAuthHandler_Login_InternalError_Returns500(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, loginName, password string) (string, error) {
			return "", errors.New("db down")
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/authentication/login",
		strings.NewReader(`{"loginName":"alice","password":"x"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := parseAPIErrorResponse(t, w); body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

// --- POST /authentication/register ---

func TestAuthHandler_Register_Success(t *testing.T) {
	var got auth.RegisterInput
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
			got = input
			return &model.User{ID: "user-1", UserName: input.UserName}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/authentication/register",
		strings.NewReader(`{"username":"bob","email":"bob@example.com","password":"Passw0rd!"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	want := auth.RegisterInput{UserName: "bob", Email: "bob@example.com", Password: "Passw0rd!"}
	if got != want {
		t.Errorf("RegisterInput = %+v, want %+v", got, want)
	}
}

func TestAuthHandler_Register_ValidationErrors_Return400WithFields(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"weak password no digit", `{"username":"bob","email":"bob@example.com","password":"Password!"}`, "password"},
		{"weak password no symbol", `{"username":"bob","email":"bob@example.com","password":"Passw0rd1"}`, "password"},
		{"short password", `{"username":"bob","email":"bob@example.com","password":"P0!a"}`, "password"},
		{"invalid email", `{"username":"bob","email":"not-an-email","password":"Passw0rd!"}`, "email"},
		{"missing username", `{"email":"bob@example.com","password":"Passw0rd!"}`, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
					t.Fatal("Register should not be called for invalid input")
					return nil, nil
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/authentication/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Register(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			body := parseAPIErrorResponse(t, w)
			if body.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidation)
			}
			if _, ok := body.Fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want key %q", body.Fields, tt.wantField)
			}
		})
	}
}

func TestAuthHandler_Register_DuplicateName_Returns400(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
			return nil, model.NewDuplicateUserNameError(input.UserName)
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/authentication/register",
		strings.NewReader(`{"username":"bob","email":"bob@example.com","password":"Passw0rd!"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeDuplicateUserName {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeDuplicateUserName)
	}
}

// --- DELETE /authentication/users/{userId} ---

func TestAuthHandler_DeleteUser_Success(t *testing.T) {
	svc := &mockAuthService{
		deleteUserFn: func(ctx context.Context, callerID, targetID string) error {
			if callerID != "admin-1" || targetID != "user-2" {
				t.Errorf("DeleteUser(%q, %q), want (admin-1, user-2)", callerID, targetID)
			}
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/authentication/users/user-2", nil)
	req = withUserID(req, "admin-1")
	req = withChiURLParam(req, "userId", "user-2")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSONString(t, w); got != "User was deleted successfully" {
		t.Errorf("body = %q, want %q", got, "User was deleted successfully")
	}
}

func TestAuthHandler_DeleteUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"target absent", model.NewUserNotFoundError("user-2"), http.StatusNotFound},
		{"self target", model.NewForbiddenError("self_target"), http.StatusForbidden},
		{"not admin", model.NewForbiddenError("not_admin"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				deleteUserFn: func(ctx context.Context, callerID, targetID string) error {
					return tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodDelete, "/authentication/users/user-2", nil)
			req = withUserID(req, "caller-1")
			req = withChiURLParam(req, "userId", "user-2")
			w := httptest.NewRecorder()

			h.DeleteUser(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if got := parseJSONString(t, w); got != "403 Not authorized" {
					t.Errorf("body = %q, want %q", got, "403 Not authorized")
				}
			}
		})
	}
}

func TestAuthHandler_DeleteUser_NoCaller_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodDelete, "/authentication/users/user-2", nil)
	req = withChiURLParam(req, "userId", "user-2")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
