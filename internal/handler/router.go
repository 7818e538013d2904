package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mura/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger

	// ドメインサービス
	ProfileService ProfileServiceInterface
	GroupService   GroupServiceInterface
	PostService    PostServiceInterface

	// 画像アップロード
	ImageStore ImageSaver
	// PublicDir はアップロード画像の静的配信ディレクトリ。空なら配信しない。
	PublicDir string

	// MetricsHandler は/metricsを提供するハンドラー。nilなら公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → (Session → RateLimit)
//
// 公開読み取りルート（プロフィール・グループの一覧/詳細と/health）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	profileHandler := NewProfileHandler(deps.ProfileService, deps.ImageStore)
	groupHandler := NewGroupHandler(deps.GroupService, deps.ImageStore)
	postHandler := NewPostHandler(deps.PostService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// 公開読み取り
	r.Get("/api/profile/all", profileHandler.ListAll)
	r.Get("/api/profile/user/{user_id}", profileHandler.GetByUserID)
	r.Get("/api/group/all", groupHandler.ListAll)
	r.Get("/api/group/get-group/{id}", groupHandler.GetByID)
	r.Get("/api/group/get-group-posts/{id}", groupHandler.ListPosts)

	// アップロード画像の静的配信
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	if deps.PublicDir != "" {
		fileServer := http.StripPrefix("/public/", http.FileServer(http.Dir(deps.PublicDir)))
		r.Get("/public/*", fileServer.ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/me", profileHandler.Me)
			r.Post("/create", profileHandler.Upsert)
			r.Post("/changepb", profileHandler.ChangeImage)
			r.Delete("/delete", profileHandler.Delete)
			r.Post("/follows/{user_id}", profileHandler.Follow)
			r.Post("/unfollows/{user_id}", profileHandler.Unfollow)
		})

		// グループ管理
		r.Route("/api/group", func(r chi.Router) {
			// POST /api/group/create - グループ作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.GroupCreateMiddleware()).Post("/create", groupHandler.Create)

			r.Post("/update/{id}", groupHandler.Update)
			r.Post("/updatepb/{id}", groupHandler.ChangeImage)
			r.Post("/add/{id}", groupHandler.Join)
			r.Post("/unadd/{id}", groupHandler.Leave)
			r.Post("/add-admin/{group_id}/{id}", groupHandler.Promote)
			r.Post("/unadd-admin/{group_id}/{id}", groupHandler.Demote)
			r.Post("/group-post/{id}", groupHandler.AddPost)
			r.Delete("/delete-group-post/{group_id}/{id}", groupHandler.RemovePost)
		})

		// 投稿管理
		r.Route("/api/posts", func(r chi.Router) {
			r.Post("/", postHandler.Create)
			r.Get("/", postHandler.ListAll)
			r.Get("/{id}", postHandler.Get)
			r.Delete("/{id}", postHandler.Delete)
			r.Put("/like/{id}", postHandler.Like)
			r.Put("/unlike/{id}", postHandler.Unlike)
			r.Post("/comment/{id}", postHandler.AddComment)
			r.Put("/like-comment/{post_id}/{comment_id}", postHandler.LikeComment)
			r.Put("/unlike-comment/{post_id}/{comment_id}", postHandler.UnlikeComment)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
