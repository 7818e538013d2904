package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mura/internal/middleware"
	"github.com/hitoshi/mura/internal/model"
)

// GroupServiceInterface はグループハンドラーが必要とするサービスインターフェース。
type GroupServiceInterface interface {
	// GetByID は指定IDのグループを取得する。
	GetByID(ctx context.Context, groupID string) (*model.Group, error)
	// ListAll は全グループを返す。
	ListAll(ctx context.Context) ([]*model.Group, error)
	// Create は新しいグループを作成する。
	Create(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error)
	// Update はグループの基本情報を更新する。
	Update(ctx context.Context, groupID, callerID, name, desc string, private bool) (*model.Group, error)
	// AuthorizeImageUpdate はグループ画像更新の権限を事前検証する。
	AuthorizeImageUpdate(ctx context.Context, groupID, callerID string) error
	// UpdateImage はグループ画像のファイル名参照を更新する。
	UpdateImage(ctx context.Context, groupID, callerID, filename string) (*model.Group, error)
	// Join はメンバーを追加する。
	Join(ctx context.Context, groupID, userID string) (*model.Group, error)
	// Leave はメンバーを脱退させる。
	Leave(ctx context.Context, groupID, userID string) (*model.Group, error)
	// Promote はメンバーを管理者に昇格させる。
	Promote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error)
	// Demote は管理者の権限を取り消す。
	Demote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error)
	// AddPost はグループに投稿を追加する。
	AddPost(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error)
	// RemovePost はグループから投稿を削除する。
	RemovePost(ctx context.Context, groupID, postID, callerID string) (*model.Group, error)
	// ListPosts はグループの投稿インデックスを返す。
	ListPosts(ctx context.Context, groupID string) (model.PostRefList, error)
}

// GroupHandler はグループ管理のHTTPハンドラー。
type GroupHandler struct {
	service GroupServiceInterface
	images  ImageSaver
}

// NewGroupHandler はGroupHandlerを生成する。
func NewGroupHandler(service GroupServiceInterface, images ImageSaver) *GroupHandler {
	return &GroupHandler{
		service: service,
		images:  images,
	}
}

// groupRequest はグループ作成・更新リクエストのボディ。
type groupRequest struct {
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Private bool   `json:"private"`
}

// groupPostRequest はグループ投稿リクエストのボディ。
type groupPostRequest struct {
	Text string `json:"text"`
}

// groupPostResponse はグループ投稿作成のレスポンス。
type groupPostResponse struct {
	Group groupResponse `json:"group"`
	Post  postResponse  `json:"post"`
}

// GetByID はグループ詳細を取得する。
// GET /api/group/get-group/:id
func (h *GroupHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	group, err := h.service.GetByID(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// ListAll は全グループの一覧を取得する。
// GET /api/group/all
func (h *GroupHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]groupResponse, len(groups))
	for i, g := range groups {
		results[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, results)
}

// Create はグループ作成を処理する。
// POST /api/group/create
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	group, err := h.service.Create(r.Context(), userID, req.Name, req.Desc, req.Private)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

// Update はグループ更新を処理する。
// POST /api/group/update/:id
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	group, err := h.service.Update(r.Context(), groupID, userID, req.Name, req.Desc, req.Private)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// ChangeImage はグループ画像のアップロードを処理する。
// POST /api/group/updatepb/:id (multipart/form-data)
func (h *GroupHandler) ChangeImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	// 非管理者のアップロードをディスクに書き込まないよう、保存前に権限を検証する
	if err := h.service.AuthorizeImageUpdate(r.Context(), groupID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	filename, err := saveUploadedImage(r, h.images, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	group, err := h.service.UpdateImage(r.Context(), groupID, userID, filename)
	if err != nil {
		// 参照が永続化されなかったファイルを残さない
		h.images.Remove(filename)
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// Join はグループ参加を処理する。
// POST /api/group/add/:id
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	group, err := h.service.Join(r.Context(), groupID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// Leave はグループ脱退を処理する。
// POST /api/group/unadd/:id
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	group, err := h.service.Leave(r.Context(), groupID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// Promote は管理者への昇格を処理する。
// POST /api/group/add-admin/:group_id/:id
func (h *GroupHandler) Promote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "group_id")
	targetID := chi.URLParam(r, "id")

	group, err := h.service.Promote(r.Context(), groupID, userID, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// Demote は管理者権限の取り消しを処理する。
// POST /api/group/unadd-admin/:group_id/:id
func (h *GroupHandler) Demote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "group_id")
	targetID := chi.URLParam(r, "id")

	group, err := h.service.Demote(r.Context(), groupID, userID, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// AddPost はグループへの投稿を処理する。
// POST /api/group/group-post/:id
func (h *GroupHandler) AddPost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	var req groupPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	group, post, err := h.service.AddPost(r.Context(), groupID, userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, groupPostResponse{
		Group: toGroupResponse(group),
		Post:  toPostResponse(post),
	})
}

// RemovePost はグループ投稿の削除を処理する。
// DELETE /api/group/delete-group-post/:group_id/:id
func (h *GroupHandler) RemovePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "group_id")
	postID := chi.URLParam(r, "id")

	group, err := h.service.RemovePost(r.Context(), groupID, postID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// ListPosts はグループの投稿インデックスを取得する。
// GET /api/group/get-group-posts/:id
func (h *GroupHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	refs, err := h.service.ListPosts(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if refs == nil {
		refs = model.PostRefList{}
	}
	writeJSON(w, http.StatusOK, refs)
}
