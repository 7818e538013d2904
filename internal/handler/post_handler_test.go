package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/mura/internal/model"
)

// --- モック定義 ---

// mockPostService はPostServiceInterfaceのモック実装。
type mockPostService struct {
	getFn           func(ctx context.Context, postID string) (*model.Post, error)
	listAllFn       func(ctx context.Context) ([]*model.Post, error)
	createFn        func(ctx context.Context, authorID, text string) (*model.Post, error)
	deleteFn        func(ctx context.Context, postID, callerID string) error
	likeFn          func(ctx context.Context, postID, userID string) (*model.Post, error)
	unlikeFn        func(ctx context.Context, postID, userID string) (*model.Post, error)
	addCommentFn    func(ctx context.Context, postID, authorID, text string) (*model.Post, error)
	likeCommentFn   func(ctx context.Context, postID, commentID, userID string) (*model.Post, error)
	unlikeCommentFn func(ctx context.Context, postID, commentID, userID string) (*model.Post, error)
}

func (m *mockPostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	if m.getFn != nil {
		return m.getFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockPostService) ListAll(ctx context.Context) ([]*model.Post, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockPostService) Create(ctx context.Context, authorID, text string) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, text)
	}
	return nil, nil
}

func (m *mockPostService) Delete(ctx context.Context, postID, callerID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID, callerID)
	}
	return nil
}

func (m *mockPostService) Like(ctx context.Context, postID, userID string) (*model.Post, error) {
	if m.likeFn != nil {
		return m.likeFn(ctx, postID, userID)
	}
	return nil, nil
}

func (m *mockPostService) Unlike(ctx context.Context, postID, userID string) (*model.Post, error) {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, postID, userID)
	}
	return nil, nil
}

func (m *mockPostService) AddComment(ctx context.Context, postID, authorID, text string) (*model.Post, error) {
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, postID, authorID, text)
	}
	return nil, nil
}

func (m *mockPostService) LikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
	if m.likeCommentFn != nil {
		return m.likeCommentFn(ctx, postID, commentID, userID)
	}
	return nil, nil
}

func (m *mockPostService) UnlikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
	if m.unlikeCommentFn != nil {
		return m.unlikeCommentFn(ctx, postID, commentID, userID)
	}
	return nil, nil
}

func testPost(id, userID string) *model.Post {
	return &model.Post{
		ID:       id,
		UserID:   userID,
		Username: "alice",
		Text:     "テスト投稿",
		Likes:    model.UserRefList{},
		Comments: []model.Comment{},
	}
}

// --- POST /api/posts テスト ---

func TestPostHandler_Create_Success(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, authorID, text string) (*model.Post, error) {
			if authorID != "user-1" || text != "はじめての投稿" {
				t.Errorf("unexpected args: %q %q", authorID, text)
			}
			return testPost("post-1", authorID), nil
		},
	}
	h := NewPostHandler(svc)

	body := bytes.NewBufferString(`{"text":"はじめての投稿"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestPostHandler_Create_EmptyText(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, authorID, text string) (*model.Post, error) {
			return nil, model.NewEmptyTextError()
		},
	}
	h := NewPostHandler(svc)

	body := bytes.NewBufferString(`{"text":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPostHandler_Create_Unauthorized(t *testing.T) {
	h := NewPostHandler(&mockPostService{})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewBufferString(`{"text":"x"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- DELETE /api/posts/:id テスト ---

func TestPostHandler_Delete_NotAuthor(t *testing.T) {
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, postID, callerID string) error {
			return model.NewNotAuthorError()
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/post-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeNotAuthor {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeNotAuthor)
	}
}

// --- PUT /api/posts/like/:id テスト ---

func TestPostHandler_Like_Success(t *testing.T) {
	svc := &mockPostService{
		likeFn: func(ctx context.Context, postID, userID string) (*model.Post, error) {
			p := testPost(postID, "user-1")
			p.Likes = model.UserRefList{{User: userID}}
			return p, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/like/post-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.Like(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp postResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Likes) != 1 || resp.Likes[0].User != "user-2" {
		t.Errorf("unexpected likes: %v", resp.Likes)
	}
}

func TestPostHandler_Like_Duplicate(t *testing.T) {
	svc := &mockPostService{
		likeFn: func(ctx context.Context, postID, userID string) (*model.Post, error) {
			return nil, model.NewAlreadyLikedError()
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/like/post-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.Like(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- PUT /api/posts/like-comment/:post_id/:comment_id テスト ---

func TestPostHandler_LikeComment_Success(t *testing.T) {
	svc := &mockPostService{
		likeCommentFn: func(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
			if postID != "post-1" || commentID != "comment-1" || userID != "user-2" {
				t.Errorf("unexpected args: %q %q %q", postID, commentID, userID)
			}
			return testPost(postID, "user-1"), nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/like-comment/post-1/comment-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "post_id", "post-1")
	req = withChiURLParam(req, "comment_id", "comment-1")
	w := httptest.NewRecorder()

	h.LikeComment(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestPostHandler_LikeComment_CommentNotFound(t *testing.T) {
	svc := &mockPostService{
		likeCommentFn: func(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
			return nil, model.NewCommentNotFoundError(commentID)
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/like-comment/post-1/missing", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "post_id", "post-1")
	req = withChiURLParam(req, "comment_id", "missing")
	w := httptest.NewRecorder()

	h.LikeComment(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /api/posts/comment/:id テスト ---

func TestPostHandler_AddComment_Success(t *testing.T) {
	svc := &mockPostService{
		addCommentFn: func(ctx context.Context, postID, authorID, text string) (*model.Post, error) {
			p := testPost(postID, "user-1")
			p.Comments = []model.Comment{{ID: "comment-1", User: authorID, Text: text}}
			return p, nil
		},
	}
	h := NewPostHandler(svc)

	body := bytes.NewBufferString(`{"text":"ナイス投稿"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts/comment/post-1", body)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.AddComment(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp postResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Comments) != 1 || resp.Comments[0].Text != "ナイス投稿" {
		t.Errorf("unexpected comments: %v", resp.Comments)
	}
}
