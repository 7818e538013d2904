package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mura/internal/middleware"
	"github.com/hitoshi/mura/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// Get は指定IDの投稿を取得する。
	Get(ctx context.Context, postID string) (*model.Post, error)
	// ListAll は全投稿を新しい順で返す。
	ListAll(ctx context.Context) ([]*model.Post, error)
	// Create は新しい投稿を作成する。
	Create(ctx context.Context, authorID, text string) (*model.Post, error)
	// Delete は投稿を削除する。
	Delete(ctx context.Context, postID, callerID string) error
	// Like は投稿にいいねを追加する。
	Like(ctx context.Context, postID, userID string) (*model.Post, error)
	// Unlike は投稿のいいねを取り消す。
	Unlike(ctx context.Context, postID, userID string) (*model.Post, error)
	// AddComment は投稿にコメントを追加する。
	AddComment(ctx context.Context, postID, authorID, text string) (*model.Post, error)
	// LikeComment はコメントにいいねを追加する。
	LikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error)
	// UnlikeComment はコメントのいいねを取り消す。
	UnlikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error)
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// postRequest は投稿・コメント作成リクエストのボディ。
type postRequest struct {
	Text string `json:"text"`
}

// Create は投稿作成を処理する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	post, err := h.service.Create(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// Get は投稿詳細を取得する。
// GET /api/posts/:id
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := h.service.Get(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// ListAll は全投稿の一覧を取得する。
// GET /api/posts
func (h *PostHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postResponse, len(posts))
	for i, p := range posts {
		results[i] = toPostResponse(p)
	}
	writeJSON(w, http.StatusOK, results)
}

// Delete は投稿削除を処理する。投稿者本人のみ削除できる。
// DELETE /api/posts/:id
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), postID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like は投稿へのいいねを処理する。
// PUT /api/posts/like/:id
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "id")

	post, err := h.service.Like(r.Context(), postID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// Unlike は投稿のいいね取り消しを処理する。
// PUT /api/posts/unlike/:id
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "id")

	post, err := h.service.Unlike(r.Context(), postID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// AddComment はコメント追加を処理する。
// POST /api/posts/comment/:id
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "id")

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	post, err := h.service.AddComment(r.Context(), postID, userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// LikeComment はコメントへのいいねを処理する。
// PUT /api/posts/like-comment/:post_id/:comment_id
func (h *PostHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "post_id")
	commentID := chi.URLParam(r, "comment_id")

	post, err := h.service.LikeComment(r.Context(), postID, commentID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// UnlikeComment はコメントのいいね取り消しを処理する。
// PUT /api/posts/unlike-comment/:post_id/:comment_id
func (h *PostHandler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "post_id")
	commentID := chi.URLParam(r, "comment_id")

	post, err := h.service.UnlikeComment(r.Context(), postID, commentID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}
