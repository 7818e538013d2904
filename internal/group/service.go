// Package group はグループ管理のドメインロジックを提供する。
package group

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mura/internal/cache"
	"github.com/hitoshi/mura/internal/metrics"
	"github.com/hitoshi/mura/internal/model"
	"github.com/hitoshi/mura/internal/repository"
	"github.com/hitoshi/mura/internal/security"
)

// groupListCacheKey はグループ一覧のキャッシュキー。
const groupListCacheKey = "groups:all"

// groupCacheKeyPrefix は単一グループのキャッシュキープレフィックス。
const groupCacheKeyPrefix = "group:"

// PostCreator は投稿作成のインターフェース。
// post.Serviceを抽象化してテスタビリティを向上させる。
type PostCreator interface {
	Create(ctx context.Context, authorID, text string) (*model.Post, error)
}

// PostRemover は投稿削除参照のインターフェース。
type PostRemover interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
	DeleteByID(ctx context.Context, id string) error
}

// Service はグループ管理のサービス層。
// メンバー・管理者・投稿インデックスはグループドキュメントに内包され、
// 変更は常にグループ単位のSaveで書き戻す。
// admins ⊆ members の包含関係をすべての操作で維持する。
type Service struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	posts     PostCreator
	postRepo  PostRemover
	sanitizer security.ContentSanitizerService
	store     *cache.Cache
	collector metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// storeとcollectorはnilを許容する（機能無効化）。
func NewService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	posts PostCreator,
	postRepo PostRemover,
	sanitizer security.ContentSanitizerService,
	store *cache.Cache,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		posts:     posts,
		postRepo:  postRepo,
		sanitizer: sanitizer,
		store:     store,
		collector: collector,
	}
}

// GetByID は指定IDのグループを取得する。キャッシュを経由する。
func (s *Service) GetByID(ctx context.Context, groupID string) (*model.Group, error) {
	var cached model.Group
	if s.store.GetJSON(groupCacheKeyPrefix+groupID, &cached) {
		return &cached, nil
	}

	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError(groupID)
	}

	s.store.SetJSON(groupCacheKeyPrefix+groupID, group)
	return group, nil
}

// ListAll は全グループを返す。キャッシュを経由する。
func (s *Service) ListAll(ctx context.Context) ([]*model.Group, error) {
	var cached []*model.Group
	if s.store.GetJSON(groupListCacheKey, &cached) {
		return cached, nil
	}

	groups, err := s.groupRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("グループ一覧の取得に失敗しました: %w", err)
	}

	s.store.SetJSON(groupListCacheKey, groups)
	return groups, nil
}

// invalidate はグループの変更後にキャッシュを破棄する。
func (s *Service) invalidate(groupID string) {
	s.store.Delete(groupCacheKeyPrefix+groupID, groupListCacheKey)
}

// Create は新しいグループを作成する。グループ名は全体で一意。
// 作成者は最初のメンバーかつ最初の管理者になる。
func (s *Service) Create(ctx context.Context, creatorID, name, desc string, private bool) (*model.Group, error) {
	name = s.sanitizer.Sanitize(name)
	desc = s.sanitizer.Sanitize(desc)

	if name == "" {
		return nil, model.NewNameRequiredError()
	}

	existing, err := s.groupRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewGroupNameTakenError(name)
	}

	group := &model.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Desc:      desc,
		Members:   model.UserRefList{{User: creatorID}},
		Admins:    model.UserRefList{{User: creatorID}},
		Follower:  model.UserRefList{},
		Posts:     model.PostRefList{},
		Private:   private,
		CreatedAt: time.Now(),
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの作成に失敗しました: %w", err)
	}

	s.invalidate(group.ID)
	return group, nil
}

// Update はグループの基本情報を更新する。管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, groupID, callerID, name, desc string, private bool) (*model.Group, error) {
	name = s.sanitizer.Sanitize(name)
	desc = s.sanitizer.Sanitize(desc)

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.Admins.Contains(callerID) {
		return nil, model.NewAdminRequiredError()
	}

	if name == "" {
		return nil, model.NewNameRequiredError()
	}

	// 改名時は新しい名前の一意性を確認する
	if name != group.Name {
		existing, err := s.groupRepo.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
		}
		if existing != nil {
			return nil, model.NewGroupNameTakenError(name)
		}
	}

	if err := s.groupRepo.UpdateFields(ctx, groupID, name, desc, private); err != nil {
		return nil, fmt.Errorf("グループの更新に失敗しました: %w", err)
	}

	group.Name = name
	group.Desc = desc
	group.Private = private

	s.invalidate(groupID)
	return group, nil
}

// AuthorizeImageUpdate はグループ画像更新の権限を事前検証する。
// アップロードファイルをディスクに書き込む前に呼び出し、
// グループの存在と呼び出し元の管理者権限を確認する。
func (s *Service) AuthorizeImageUpdate(ctx context.Context, groupID, callerID string) error {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return err
	}

	if !group.Admins.Contains(callerID) {
		return model.NewAdminRequiredError()
	}

	return nil
}

// UpdateImage はグループ画像のファイル名参照を更新する。管理者のみ実行できる。
func (s *Service) UpdateImage(ctx context.Context, groupID, callerID, filename string) (*model.Group, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.Admins.Contains(callerID) {
		return nil, model.NewAdminRequiredError()
	}

	if err := s.groupRepo.UpdateImage(ctx, groupID, filename); err != nil {
		return nil, fmt.Errorf("グループ画像の更新に失敗しました: %w", err)
	}

	group.GroupImage = filename
	s.invalidate(groupID)
	return group, nil
}

// Join はユーザーをグループのメンバーに追加する。
func (s *Service) Join(ctx context.Context, groupID, userID string) (*model.Group, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.Members.Contains(userID) {
		return nil, model.NewAlreadyMemberError()
	}

	group.Members = group.Members.Prepend(userID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordMembershipChange("join")
	}

	s.invalidate(groupID)
	return group, nil
}

// Leave はユーザーをグループから脱退させる。
// 管理者が脱退する場合は管理者権限も同時に失う（admins ⊆ membersの維持）。
func (s *Service) Leave(ctx context.Context, groupID, userID string) (*model.Group, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.Members.Contains(userID) {
		return nil, model.NewNotMemberError()
	}

	group.Members = group.Members.Remove(userID)
	group.Admins = group.Admins.Remove(userID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordMembershipChange("leave")
	}

	s.invalidate(groupID)
	return group, nil
}

// Promote はメンバーを管理者に昇格させる。既存の管理者のみ実行できる。
func (s *Service) Promote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error) {
	if err := s.findUser(ctx, targetID); err != nil {
		return nil, err
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.Admins.Contains(callerID) {
		return nil, model.NewAdminRequiredError()
	}

	if !group.Members.Contains(targetID) {
		return nil, model.NewNotMemberError()
	}

	if group.Admins.Contains(targetID) {
		return nil, model.NewAlreadyAdminError()
	}

	group.Admins = group.Admins.Prepend(targetID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordMembershipChange("promote")
	}

	s.invalidate(groupID)
	return group, nil
}

// Demote は管理者の権限を取り消す。既存の管理者のみ実行できる。
// メンバーシップは変更しない。
func (s *Service) Demote(ctx context.Context, groupID, callerID, targetID string) (*model.Group, error) {
	if err := s.findUser(ctx, targetID); err != nil {
		return nil, err
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.Admins.Contains(callerID) {
		return nil, model.NewAdminRequiredError()
	}

	if !group.Admins.Contains(targetID) {
		return nil, model.NewNotAdminError()
	}

	group.Admins = group.Admins.Remove(targetID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordMembershipChange("demote")
	}

	s.invalidate(groupID)
	return group, nil
}

// AddPost はグループに投稿を追加する。メンバーのみ実行できる。
// 投稿ドキュメントの作成とグループの投稿インデックスへの追加は
// 独立した2回の書き込みであり、トランザクションで保護されない。
func (s *Service) AddPost(ctx context.Context, groupID, authorID, text string) (*model.Group, *model.Post, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	if !group.Members.Contains(authorID) {
		return nil, nil, model.NewMemberRequiredError()
	}

	post, err := s.posts.Create(ctx, authorID, text)
	if err != nil {
		return nil, nil, err
	}

	// 新しい投稿がインデックスの先頭に来る
	group.Posts = group.Posts.Prepend(post.ID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		// 投稿ドキュメントは残る。インデックスから辿れないだけで破壊ではない。
		return nil, nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	s.invalidate(groupID)
	return group, post, nil
}

// RemovePost はグループから投稿を削除する。投稿者本人のみ実行できる。
// 投稿インデックスからの除去と投稿ドキュメントの削除を行う。
func (s *Service) RemovePost(ctx context.Context, groupID, postID, callerID string) (*model.Group, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if post.UserID != callerID {
		return nil, model.NewNotAuthorError()
	}

	group.Posts = group.Posts.Remove(postID)
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの保存に失敗しました: %w", err)
	}

	if err := s.postRepo.DeleteByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	s.invalidate(groupID)
	return group, nil
}

// ListPosts はグループの投稿インデックスを新しい順で返す。
func (s *Service) ListPosts(ctx context.Context, groupID string) (model.PostRefList, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return group.Posts, nil
}

// findGroup はグループを取得し、存在しない場合はAPIErrorを返す。
// 書き込み系操作で使うためキャッシュを経由しない。
func (s *Service) findGroup(ctx context.Context, groupID string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError(groupID)
	}
	return group, nil
}

// findUser はユーザーの存在を確認する。
func (s *Service) findUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}
