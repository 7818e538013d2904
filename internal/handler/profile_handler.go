package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mura/internal/middleware"
	"github.com/hitoshi/mura/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetByUserID は指定ユーザーのプロフィールを取得する。
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	// ListAll は全プロフィールを返す。
	ListAll(ctx context.Context) ([]*model.Profile, error)
	// Upsert はプロフィールを作成または更新する。
	Upsert(ctx context.Context, userID, name, bio, website string) (*model.Profile, error)
	// UpdateImage はプロフィール画像のファイル名参照を更新する。
	UpdateImage(ctx context.Context, userID, filename string) (*model.Profile, error)
	// Delete はアカウントを削除する。
	Delete(ctx context.Context, userID string) error
	// Follow はフォローエッジを作成する。
	Follow(ctx context.Context, followerUserID, targetUserID string) (*model.Profile, *model.Profile, error)
	// Unfollow はフォローエッジを削除する。
	Unfollow(ctx context.Context, followerUserID, targetUserID string) (*model.Profile, *model.Profile, error)
}

// ImageSaver は画像ファイル保存のインターフェース。
// upload.ImageStoreを抽象化してテスタビリティを向上させる。
type ImageSaver interface {
	Save(entityID, mimeType string, r io.Reader) (string, error)
	// Remove は保存済みファイルを削除する。後続の永続化失敗時の後始末に使う。
	Remove(filename string)
	MaxSize() int64
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	images  ImageSaver
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, images ImageSaver) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		images:  images,
	}
}

// upsertProfileRequest はプロフィール作成・更新リクエストのボディ。
type upsertProfileRequest struct {
	Name    string `json:"name"`
	Bio     string `json:"bio"`
	Website string `json:"website"`
}

// followResponse はフォロー・アンフォロー操作のレスポンス。
// 操作した側と相手側の両プロフィールを返す。
type followResponse struct {
	ProfileFollowing profileResponse `json:"profileFollowing"`
	ProfileFollows   profileResponse `json:"profileFollows"`
}

// Me は認証済みユーザー自身のプロフィールを取得する。
// GET /api/profile/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// GetByUserID は指定ユーザーのプロフィールを取得する。
// GET /api/profile/user/:user_id
func (h *ProfileHandler) GetByUserID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	profile, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ListAll は全プロフィールの一覧を取得する。
// GET /api/profile/all
func (h *ProfileHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		results[i] = toProfileResponse(p)
	}
	writeJSON(w, http.StatusOK, results)
}

// Upsert はプロフィールの作成・更新を処理する。
// POST /api/profile/create
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req upsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	profile, err := h.service.Upsert(r.Context(), userID, req.Name, req.Bio, req.Website)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ChangeImage はプロフィール画像のアップロードを処理する。
// POST /api/profile/changepb (multipart/form-data)
func (h *ProfileHandler) ChangeImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	filename, err := saveUploadedImage(r, h.images, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	profile, err := h.service.UpdateImage(r.Context(), userID, filename)
	if err != nil {
		// 参照が永続化されなかったファイルを残さない
		h.images.Remove(filename)
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Delete はアカウント削除を処理する。
// DELETE /api/profile/delete
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Follow はフォロー操作を処理する。
// POST /api/profile/follows/:user_id
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "user_id")

	following, target, err := h.service.Follow(r.Context(), userID, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, followResponse{
		ProfileFollowing: toProfileResponse(following),
		ProfileFollows:   toProfileResponse(target),
	})
}

// Unfollow はアンフォロー操作を処理する。
// POST /api/profile/unfollows/:user_id
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "user_id")

	following, target, err := h.service.Unfollow(r.Context(), userID, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, followResponse{
		ProfileFollowing: toProfileResponse(following),
		ProfileFollows:   toProfileResponse(target),
	})
}

// saveUploadedImage はmultipartフォームの"image"フィールドを保存してファイル名を返す。
// フィールドが存在しない場合はNO_FILE_UPLOADEDエラーを返す。
func saveUploadedImage(r *http.Request, store ImageSaver, entityID string) (string, error) {
	if err := r.ParseMultipartForm(store.MaxSize()); err != nil {
		return "", model.NewNoFileUploadedError()
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", model.NewNoFileUploadedError()
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	return store.Save(entityID, mimeType, file)
}
