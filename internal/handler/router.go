package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/taskboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenValidator    middleware.TokenValidator
	SubjectParser     middleware.SubjectParser
	AdminAuthorizer   middleware.AdminAuthorizer
	HTTPRecorder      middleware.HTTPRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface

	// 作業階層
	ProjectService   ProjectServiceInterface
	MilestoneService MilestoneServiceInterface
	TaskItemService  TaskItemServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → CORS → SecurityHeaders
//	  → (認証エンドポイント) RateLimit(Auth, IP単位)
//	  → (その他) Bearer → RateLimit(General, ユーザー単位) → (削除) Admin
//
// /health と /metrics は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	milestoneHandler := NewMilestoneHandler(deps.MilestoneService)
	taskItemHandler := NewTaskItemHandler(deps.TaskItemService)

	requireAdmin := middleware.NewAdminMiddleware(deps.AdminAuthorizer, deps.SubjectParser)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/authentication", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		})

		// 対象の存在確認を先に行うため、管理者判定はサービス側で行う
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerMiddleware(deps.TokenValidator))
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Delete("/users/{userId}", authHandler.DeleteUser)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerMiddleware(deps.TokenValidator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/projects", func(r chi.Router) {
			r.Get("/all", projectHandler.List)
			r.Post("/add", projectHandler.Create)
			r.Get("/{id}", projectHandler.Get)
			r.Put("/{id}", projectHandler.Update)
			r.With(requireAdmin).Delete("/{id}", projectHandler.Delete)
		})

		r.Route("/milestones", func(r chi.Router) {
			r.Get("/all", milestoneHandler.List)
			r.Post("/create", milestoneHandler.Create)
			r.Get("/{id}", milestoneHandler.Get)
			r.Put("/{id}", milestoneHandler.Update)
			r.With(requireAdmin).Delete("/{id}", milestoneHandler.Delete)
		})

		r.Route("/taskitems", func(r chi.Router) {
			r.Get("/all", taskItemHandler.List)
			r.Post("/create", taskItemHandler.Create)
			r.Get("/{id}", taskItemHandler.Get)
			r.Put("/{id}", taskItemHandler.Update)
			r.With(requireAdmin).Delete("/{id}", taskItemHandler.Delete)
		})
	})

	return r
}
