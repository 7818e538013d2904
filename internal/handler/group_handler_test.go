package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/mura/internal/model"
	"github.com/hitoshi/mura/internal/upload"
)

// --- モック定義 ---

// mockGroupService はGroupServiceInterfaceのモック実装。
type mockGroupService struct {
	getByIDFn              func(ctx context.Context, groupID string) (*model.Group, error)
	listAllFn              func(ctx context.Context) ([]*model.Group, error)
	createFn               func(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error)
	updateFn               func(ctx context.Context, groupID, callerID, name, desc string, private bool) (*model.Group, error)
	authorizeImageUpdateFn func(ctx context.Context, groupID, callerID string) error
	updateImageFn          func(ctx context.Context, groupID, callerID, filename string) (*model.Group, error)
	joinFn                 func(ctx context.Context, groupID, userID string) (*model.Group, error)
	leaveFn                func(ctx context.Context, groupID, userID string) (*model.Group, error)
	promoteFn              func(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error)
	demoteFn               func(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error)
	addPostFn              func(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error)
	removePostFn           func(ctx context.Context, groupID, postID, callerID string) (*model.Group, error)
	listPostsFn            func(ctx context.Context, groupID string) (model.PostRefList, error)
}

func (m *mockGroupService) GetByID(ctx context.Context, groupID string) (*model.Group, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, groupID)
	}
	return nil, nil
}

func (m *mockGroupService) ListAll(ctx context.Context) ([]*model.Group, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockGroupService) Create(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error) {
	if m.createFn != nil {
		return m.createFn(ctx, creatorID, name, desc, private)
	}
	return nil, nil
}

func (m *mockGroupService) Update(ctx context.Context, groupID, callerID, name, desc string, private bool) (*model.Group, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, groupID, callerID, name, desc, private)
	}
	return nil, nil
}

func (m *mockGroupService) AuthorizeImageUpdate(ctx context.Context, groupID, callerID string) error {
	if m.authorizeImageUpdateFn != nil {
		return m.authorizeImageUpdateFn(ctx, groupID, callerID)
	}
	return nil
}

func (m *mockGroupService) UpdateImage(ctx context.Context, groupID, callerID, filename string) (*model.Group, error) {
	if m.updateImageFn != nil {
		return m.updateImageFn(ctx, groupID, callerID, filename)
	}
	return nil, nil
}

func (m *mockGroupService) Join(ctx context.Context, groupID, userID string) (*model.Group, error) {
	if m.joinFn != nil {
		return m.joinFn(ctx, groupID, userID)
	}
	return nil, nil
}

func (m *mockGroupService) Leave(ctx context.Context, groupID, userID string) (*model.Group, error) {
	if m.leaveFn != nil {
		return m.leaveFn(ctx, groupID, userID)
	}
	return nil, nil
}

func (m *mockGroupService) Promote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error) {
	if m.promoteFn != nil {
		return m.promoteFn(ctx, groupID, callerID, targetID)
	}
	return nil, nil
}

func (m *mockGroupService) Demote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error) {
	if m.demoteFn != nil {
		return m.demoteFn(ctx, groupID, callerID, targetID)
	}
	return nil, nil
}

func (m *mockGroupService) AddPost(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error) {
	if m.addPostFn != nil {
		return m.addPostFn(ctx, groupID, authorID, text)
	}
	return nil, nil, nil
}

func (m *mockGroupService) RemovePost(ctx context.Context, groupID, postID, callerID string) (*model.Group, error) {
	if m.removePostFn != nil {
		return m.removePostFn(ctx, groupID, postID, callerID)
	}
	return nil, nil
}

func (m *mockGroupService) ListPosts(ctx context.Context, groupID string) (model.PostRefList, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, groupID)
	}
	return nil, nil
}

func testGroup(id string) *model.Group {
	return &model.Group{
		ID:       id,
		Name:     "テストグループ",
		Members:  model.UserRefList{{User: "user-1"}},
		Admins:   model.UserRefList{{User: "user-1"}},
		Follower: model.UserRefList{},
		Posts:    model.PostRefList{},
	}
}

// --- POST /api/group/create テスト ---

func TestGroupHandler_Create_Success(t *testing.T) {
	svc := &mockGroupService{
		createFn: func(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error) {
			if creatorID != "user-1" || name != "将棋クラブ" || !private {
				t.Errorf("unexpected args: %q %q %v", creatorID, name, private)
			}
			return testGroup("group-1"), nil
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	body := bytes.NewBufferString(`{"name":"将棋クラブ","desc":"将棋好きの集まり","private":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/group/create", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestGroupHandler_Create_NameTaken(t *testing.T) {
	svc := &mockGroupService{
		createFn: func(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error) {
			return nil, model.NewGroupNameTakenError(name)
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	body := bytes.NewBufferString(`{"name":"将棋クラブ"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/group/create", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeGroupNameTaken {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeGroupNameTaken)
	}
}

func TestGroupHandler_Create_Unauthorized(t *testing.T) {
	h := NewGroupHandler(&mockGroupService{}, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodPost, "/api/group/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /api/group/update/:id テスト ---

func TestGroupHandler_Update_AdminRequired(t *testing.T) {
	svc := &mockGroupService{
		updateFn: func(ctx context.Context, groupID, callerID, name, desc string, private bool) (*model.Group, error) {
			return nil, model.NewAdminRequiredError()
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	body := bytes.NewBufferString(`{"name":"改名"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/group/update/group-1", body)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- POST /api/group/updatepb/:id テスト ---

func TestGroupHandler_ChangeImage_Success(t *testing.T) {
	authorized := false
	svc := &mockGroupService{
		authorizeImageUpdateFn: func(ctx context.Context, groupID, callerID string) error {
			if groupID != "group-1" || callerID != "user-1" {
				t.Errorf("unexpected args: %q %q", groupID, callerID)
			}
			authorized = true
			return nil
		},
		updateImageFn: func(ctx context.Context, groupID, callerID, filename string) (*model.Group, error) {
			if filename != "group-1.png" {
				t.Errorf("filename = %q, want %q", filename, "group-1.png")
			}
			g := testGroup(groupID)
			g.GroupImage = filename
			return g, nil
		},
	}
	saver := &mockImageSaver{}
	h := NewGroupHandler(svc, saver)

	req := newMultipartImageRequest(t, "/api/group/updatepb/group-1", "image/png", []byte("png-bytes"))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.ChangeImage(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !authorized {
		t.Error("権限検証が呼ばれていない")
	}
}

func TestGroupHandler_ChangeImage_NonAdminWritesNothingToDisk(t *testing.T) {
	dir := t.TempDir()
	svc := &mockGroupService{
		authorizeImageUpdateFn: func(ctx context.Context, groupID, callerID string) error {
			return model.NewAdminRequiredError()
		},
		updateImageFn: func(ctx context.Context, groupID, callerID, filename string) (*model.Group, error) {
			t.Error("権限検証に失敗したのにUpdateImageが呼ばれた")
			return nil, model.NewAdminRequiredError()
		},
	}
	h := NewGroupHandler(svc, upload.NewImageStore(dir, 1<<20))

	req := newMultipartImageRequest(t, "/api/group/updatepb/group-1", "image/png", []byte("png-bytes"))
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.ChangeImage(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	// 非管理者のアップロードはディスクに書き込まれない
	if _, err := os.Stat(filepath.Join(dir, "group-1.png")); !os.IsNotExist(err) {
		t.Error("非管理者のアップロードがディスクに書き込まれた")
	}
}

func TestGroupHandler_ChangeImage_RemovesFileWhenPersistFails(t *testing.T) {
	dir := t.TempDir()
	svc := &mockGroupService{
		updateImageFn: func(ctx context.Context, groupID, callerID, filename string) (*model.Group, error) {
			return nil, model.NewGroupNotFoundError(groupID)
		},
	}
	h := NewGroupHandler(svc, upload.NewImageStore(dir, 1<<20))

	req := newMultipartImageRequest(t, "/api/group/updatepb/group-1", "image/png", []byte("png-bytes"))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.ChangeImage(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	// 参照が永続化されなかったファイルは残さない
	if _, err := os.Stat(filepath.Join(dir, "group-1.png")); !os.IsNotExist(err) {
		t.Error("永続化失敗後もファイルがディスクに残っている")
	}
}

// --- POST /api/group/add/:id, /api/group/unadd/:id テスト ---

func TestGroupHandler_Join_Success(t *testing.T) {
	svc := &mockGroupService{
		joinFn: func(ctx context.Context, groupID, userID string) (*model.Group, error) {
			if groupID != "group-1" || userID != "user-2" {
				t.Errorf("unexpected args: %q %q", groupID, userID)
			}
			return testGroup("group-1"), nil
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodPost, "/api/group/add/group-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.Join(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestGroupHandler_Join_AlreadyMember(t *testing.T) {
	svc := &mockGroupService{
		joinFn: func(ctx context.Context, groupID, userID string) (*model.Group, error) {
			return nil, model.NewAlreadyMemberError()
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodPost, "/api/group/add/group-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.Join(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestGroupHandler_Leave_NotMember(t *testing.T) {
	svc := &mockGroupService{
		leaveFn: func(ctx context.Context, groupID, userID string) (*model.Group, error) {
			return nil, model.NewNotMemberError()
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodPost, "/api/group/unadd/group-1", nil)
	req = withUserID(req, "user-9")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.Leave(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/group/add-admin/:group_id/:id テスト ---

func TestGroupHandler_Promote_Success(t *testing.T) {
	svc := &mockGroupService{
		promoteFn: func(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error) {
			if groupID != "group-1" || callerID != "user-1" || targetID != "user-2" {
				t.Errorf("unexpected args: %q %q %q", groupID, callerID, targetID)
			}
			return testGroup("group-1"), nil
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodPost, "/api/group/add-admin/group-1/user-2", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "group_id", "group-1")
	req = withChiURLParam(req, "id", "user-2")
	w := httptest.NewRecorder()

	h.Promote(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- POST /api/group/group-post/:id テスト ---

func TestGroupHandler_AddPost_Success(t *testing.T) {
	svc := &mockGroupService{
		addPostFn: func(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error) {
			return testGroup("group-1"), &model.Post{ID: "post-1", UserID: authorID, Text: text}, nil
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	body := bytes.NewBufferString(`{"text":"グループ投稿"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/group/group-post/group-1", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.AddPost(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp groupPostResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Post.ID != "post-1" {
		t.Errorf("post.id = %q, want %q", resp.Post.ID, "post-1")
	}
}

func TestGroupHandler_AddPost_MemberRequired(t *testing.T) {
	svc := &mockGroupService{
		addPostFn: func(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error) {
			return nil, nil, model.NewMemberRequiredError()
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	body := bytes.NewBufferString(`{"text":"部外者の投稿"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/group/group-post/group-1", body)
	req = withUserID(req, "user-9")
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.AddPost(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- GET /api/group/get-group-posts/:id テスト ---

func TestGroupHandler_ListPosts_EmptyIndexReturnsArray(t *testing.T) {
	svc := &mockGroupService{
		listPostsFn: func(ctx context.Context, groupID string) (model.PostRefList, error) {
			return nil, nil
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/group/get-group-posts/group-1", nil)
	req = withChiURLParam(req, "id", "group-1")
	w := httptest.NewRecorder()

	h.ListPosts(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// nilでも空配列としてシリアライズされる
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

func TestGroupHandler_GetByID_NotFound(t *testing.T) {
	svc := &mockGroupService{
		getByIDFn: func(ctx context.Context, groupID string) (*model.Group, error) {
			return nil, model.NewGroupNotFoundError(groupID)
		},
	}
	h := NewGroupHandler(svc, &mockImageSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/group/get-group/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
