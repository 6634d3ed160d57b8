package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/milestone"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/project"
	"github.com/hitoshi/taskboard/internal/taskitem"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn      func(ctx context.Context, loginName, password string) (string, error)
	registerFn   func(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	deleteUserFn func(ctx context.Context, callerID, targetID string) error
}

func (m *mockAuthService) Login(ctx context.Context, loginName, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, loginName, password)
	}
	return "", nil
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return &model.User{ID: "user-new", UserName: input.UserName}, nil
}

func (m *mockAuthService) DeleteUser(ctx context.Context, callerID, targetID string) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, callerID, targetID)
	}
	return nil
}

type mockProjectService struct {
	createFn func(ctx context.Context, in project.Input) (*model.Project, error)
	getFn    func(ctx context.Context, id int64) (*model.Project, error)
	listFn   func(ctx context.Context) ([]*model.Project, error)
	updateFn func(ctx context.Context, id int64, in project.Input) (*model.Project, error)
	deleteFn func(ctx context.Context, id int64) (*model.Project, error)
}

func (m *mockProjectService) Create(ctx context.Context, in project.Input) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Project{ID: 1, Name: in.Name, Description: in.Description, Version: 1}, nil
}

func (m *mockProjectService) Get(ctx context.Context, id int64) (*model.Project, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewProjectNotFoundError(id)
}

func (m *mockProjectService) List(ctx context.Context) ([]*model.Project, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Project{}, nil
}

func (m *mockProjectService) Update(ctx context.Context, id int64, in project.Input) (*model.Project, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, model.NewProjectNotFoundError(id)
}

func (m *mockProjectService) Delete(ctx context.Context, id int64) (*model.Project, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, model.NewProjectNotFoundError(id)
}

type mockMilestoneService struct {
	createFn func(ctx context.Context, in milestone.Input) (*model.Milestone, error)
	getFn    func(ctx context.Context, id int64) (*model.Milestone, error)
	listFn   func(ctx context.Context) ([]*model.Milestone, error)
	updateFn func(ctx context.Context, id int64, in milestone.Input) (*model.Milestone, error)
	deleteFn func(ctx context.Context, id int64) (*model.Milestone, error)
}

func (m *mockMilestoneService) Create(ctx context.Context, in milestone.Input) (*model.Milestone, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Milestone{ID: 1, Name: in.Name, ProjectID: in.ProjectID, Version: 1}, nil
}

func (m *mockMilestoneService) Get(ctx context.Context, id int64) (*model.Milestone, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewMilestoneNotFoundError(id)
}

func (m *mockMilestoneService) List(ctx context.Context) ([]*model.Milestone, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Milestone{}, nil
}

func (m *mockMilestoneService) Update(ctx context.Context, id int64, in milestone.Input) (*model.Milestone, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, model.NewMilestoneNotFoundError(id)
}

func (m *mockMilestoneService) Delete(ctx context.Context, id int64) (*model.Milestone, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, model.NewMilestoneNotFoundError(id)
}

type mockTaskItemService struct {
	createFn func(ctx context.Context, in taskitem.Input) (*model.TaskItem, error)
	getFn    func(ctx context.Context, id int64) (*model.TaskItem, error)
	listFn   func(ctx context.Context) ([]*model.TaskItem, error)
	updateFn func(ctx context.Context, id int64, in taskitem.Input) (*model.TaskItem, error)
	deleteFn func(ctx context.Context, id int64) (*model.TaskItem, error)
}

func (m *mockTaskItemService) Create(ctx context.Context, in taskitem.Input) (*model.TaskItem, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.TaskItem{ID: 1, Name: in.Name, Priority: in.Priority, MilestoneID: in.MilestoneID, Version: 1}, nil
}

func (m *mockTaskItemService) Get(ctx context.Context, id int64) (*model.TaskItem, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewTaskItemNotFoundError(id)
}

func (m *mockTaskItemService) List(ctx context.Context) ([]*model.TaskItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.TaskItem{}, nil
}

func (m *mockTaskItemService) Update(ctx context.Context, id int64, in taskitem.Input) (*model.TaskItem, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, model.NewTaskItemNotFoundError(id)
}

func (m *mockTaskItemService) Delete(ctx context.Context, id int64) (*model.TaskItem, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, model.NewTaskItemNotFoundError(id)
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// parseJSONString はJSON文字列のボディをパースするヘルパー。
func parseJSONString(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var s string
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("body is not a JSON string: %v", err)
	}
	return s
}
