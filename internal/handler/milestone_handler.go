package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/milestone"
)

// MilestoneServiceInterface はマイルストーンハンドラーが必要とするサービスインターフェース。
type MilestoneServiceInterface interface {
	Create(ctx context.Context, in milestone.Input) (*model.Milestone, error)
	Get(ctx context.Context, id int64) (*model.Milestone, error)
	List(ctx context.Context) ([]*model.Milestone, error)
	Update(ctx context.Context, id int64, in milestone.Input) (*model.Milestone, error)
	Delete(ctx context.Context, id int64) (*model.Milestone, error)
}

// MilestoneHandler はマイルストーン管理のHTTPハンドラー。
type MilestoneHandler struct {
	service MilestoneServiceInterface
}

// NewMilestoneHandler はMilestoneHandlerを生成する。
func NewMilestoneHandler(service MilestoneServiceInterface) *MilestoneHandler {
	return &MilestoneHandler{service: service}
}

// List は全マイルストーンを作成順に返す。
// GET /milestones/all
func (h *MilestoneHandler) List(w http.ResponseWriter, r *http.Request) {
	milestones, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]milestoneResponse, 0, len(milestones))
	for _, m := range milestones {
		resp = append(resp, toMilestoneResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はマイルストーンを1件返す。
// GET /milestones/{id}
func (h *MilestoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMilestoneResponse(m))
}

// Create はマイルストーンを作成する。projectIdが存在しない場合は400を返す。
// POST /milestones/create
func (h *MilestoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleServiceError(w, r, toValidationError(err))
		return
	}

	m, err := h.service.Create(r.Context(), milestone.Input{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMilestoneResponse(m))
}

// Update はマイルストーンの可変フィールドを置き換える。projectIdを変えると別プロジェクトへ移動する。
// ボディのidはパスのidと一致しなければならない（省略可）。
// PUT /milestones/{id}
func (h *MilestoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req milestoneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleServiceError(w, r, toValidationError(err))
		return
	}

	m, err := h.service.Update(r.Context(), id, milestone.Input{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Version:     req.Version,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMilestoneResponse(m))
}

// Delete はマイルストーンを削除し、削除した内容を返す。配下のタスクも削除される。
// 管理者判定はルーターのAdminミドルウェアで行う。
// DELETE /milestones/{id}
func (h *MilestoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	m, err := h.service.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMilestoneResponse(m))
}
