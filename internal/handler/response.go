// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/mura/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	ID           string            `json:"id"`
	User         string            `json:"user"`
	Name         string            `json:"name"`
	Bio          string            `json:"bio"`
	Website      string            `json:"website"`
	ProfileImage string            `json:"profileImage"`
	Follower     model.UserRefList `json:"follower"`
	Following    model.UserRefList `json:"following"`
	Date         time.Time         `json:"date"`
}

// groupResponse はグループのAPIレスポンス。
type groupResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Desc       string            `json:"desc"`
	GroupImage string            `json:"groupImage"`
	Members    model.UserRefList `json:"members"`
	Admins     model.UserRefList `json:"admins"`
	Follower   model.UserRefList `json:"follower"`
	Posts      model.PostRefList `json:"posts"`
	Private    bool              `json:"private"`
	Date       time.Time         `json:"date"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID           string            `json:"id"`
	User         string            `json:"user"`
	Username     string            `json:"username"`
	Name         string            `json:"name"`
	ProfileImage string            `json:"profileImage"`
	Text         string            `json:"text"`
	Likes        model.UserRefList `json:"likes"`
	Comments     []model.Comment   `json:"comments"`
	Date         time.Time         `json:"date"`
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:           p.ID,
		User:         p.UserID,
		Name:         p.Name,
		Bio:          p.Bio,
		Website:      p.Website,
		ProfileImage: p.ProfileImage,
		Follower:     p.Follower,
		Following:    p.Following,
		Date:         p.CreatedAt,
	}
}

// toGroupResponse はmodel.GroupからAPIレスポンスに変換する。
func toGroupResponse(g *model.Group) groupResponse {
	return groupResponse{
		ID:         g.ID,
		Name:       g.Name,
		Desc:       g.Desc,
		GroupImage: g.GroupImage,
		Members:    g.Members,
		Admins:     g.Admins,
		Follower:   g.Follower,
		Posts:      g.Posts,
		Private:    g.Private,
		Date:       g.CreatedAt,
	}
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:           p.ID,
		User:         p.UserID,
		Username:     p.Username,
		Name:         p.Name,
		ProfileImage: p.ProfileImage,
		Text:         p.Text,
		Likes:        p.Likes,
		Comments:     p.Comments,
		Date:         p.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は認証エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequest はリクエストボディ解析エラーレスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 分類: 検証エラー→400、未検出→404、権限不足→403、状態競合→409、その他→500。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeProfileNotFound,
		model.ErrCodeUserNotFound,
		model.ErrCodeGroupNotFound,
		model.ErrCodePostNotFound,
		model.ErrCodeCommentNotFound:
		return http.StatusNotFound
	case model.ErrCodeSelfFollow,
		model.ErrCodeNotFollowing,
		model.ErrCodeNotMember,
		model.ErrCodeNotAdmin,
		model.ErrCodeNotLiked,
		model.ErrCodeEmptyText,
		model.ErrCodeNameRequired,
		model.ErrCodeNoFileUploaded,
		model.ErrCodeInvalidImage,
		model.ErrCodeImageTooLarge:
		return http.StatusBadRequest
	case model.ErrCodeAdminRequired,
		model.ErrCodeMemberRequired,
		model.ErrCodeNotAuthor:
		return http.StatusForbidden
	case model.ErrCodeAlreadyFollowing,
		model.ErrCodeAlreadyMember,
		model.ErrCodeAlreadyAdmin,
		model.ErrCodeAlreadyLiked,
		model.ErrCodeGroupNameTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
