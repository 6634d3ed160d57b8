package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/taskitem"
)

// TaskItemServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskItemServiceInterface interface {
	Create(ctx context.Context, in taskitem.Input) (*model.TaskItem, error)
	Get(ctx context.Context, id int64) (*model.TaskItem, error)
	List(ctx context.Context) ([]*model.TaskItem, error)
	Update(ctx context.Context, id int64, in taskitem.Input) (*model.TaskItem, error)
	Delete(ctx context.Context, id int64) (*model.TaskItem, error)
}

// TaskItemHandler はタスク管理のHTTPハンドラー。
type TaskItemHandler struct {
	service TaskItemServiceInterface
}

// NewTaskItemHandler はTaskItemHandlerを生成する。
func NewTaskItemHandler(service TaskItemServiceInterface) *TaskItemHandler {
	return &TaskItemHandler{service: service}
}

// List は全タスクを作成順に返す。
// GET /taskitems/all
func (h *TaskItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]taskItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toTaskItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はタスクを1件返す。
// GET /taskitems/{id}
func (h *TaskItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskItemResponse(item))
}

// Create はタスクを作成する。priorityは名前（Low/Medium/High）または0〜2で指定する。
// POST /taskitems/create
func (h *TaskItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskItemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleServiceError(w, r, toValidationError(err))
		return
	}

	item, err := h.service.Create(r.Context(), taskitem.Input{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		MilestoneID: req.MilestoneID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskItemResponse(item))
}

// Update はタスクの可変フィールドを置き換える。
// ボディのidはパスのidと一致しなければならない（省略可）。
// PUT /taskitems/{id}
func (h *TaskItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req taskItemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleServiceError(w, r, toValidationError(err))
		return
	}

	item, err := h.service.Update(r.Context(), id, taskitem.Input{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		MilestoneID: req.MilestoneID,
		Version:     req.Version,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskItemResponse(item))
}

// Delete はタスクを削除し、削除した内容を返す。
// 管理者判定はルーターのAdminミドルウェアで行う。
// DELETE /taskitems/{id}
func (h *TaskItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskItemResponse(item))
}
