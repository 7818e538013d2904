// Package post は投稿・コメント・いいねのドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mura/internal/metrics"
	"github.com/hitoshi/mura/internal/model"
	"github.com/hitoshi/mura/internal/repository"
	"github.com/hitoshi/mura/internal/security"
)

// Service は投稿管理のサービス層。
// 投稿ドキュメントはコメント・いいねを内包し、変更は常に
// 投稿単位のSaveで書き戻す（単一ドキュメント内の変更は原子的）。
type Service struct {
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sanitizer   security.ContentSanitizerService
	collector   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		postRepo:    postRepo,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
		collector:   collector,
	}
}

// Get は指定IDの投稿を取得する。
func (s *Service) Get(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// ListAll は全投稿を新しい順で返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// Create は新しい投稿を作成する。
// 投稿者のusername/name/profileImageは作成時点のスナップショットとして
// 投稿ドキュメントに複製される（後のプロフィール変更は反映されない）。
func (s *Service) Create(ctx context.Context, authorID, text string) (*model.Post, error) {
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewEmptyTextError()
	}

	user, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(authorID)
	}

	post := &model.Post{
		ID:        uuid.NewString(),
		UserID:    authorID,
		Username:  user.Username,
		Name:      user.Name,
		Text:      text,
		Likes:     model.UserRefList{},
		Comments:  []model.Comment{},
		CreatedAt: time.Now(),
	}

	// プロフィール画像のスナップショット（プロフィール未作成なら空のまま）
	if profile, err := s.profileRepo.FindByUserID(ctx, authorID); err == nil && profile != nil {
		post.ProfileImage = profile.ProfileImage
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordPostCreated()
	}

	return post, nil
}

// Delete は投稿を削除する。投稿者本人のみ削除できる。
func (s *Service) Delete(ctx context.Context, postID, callerID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}

	if post.UserID != callerID {
		return model.NewNotAuthorError()
	}

	if err := s.postRepo.DeleteByID(ctx, postID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	return nil
}

// Like は投稿にいいねを追加する。重複いいねは拒否する。
func (s *Service) Like(ctx context.Context, postID, userID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	if post.Likes.Contains(userID) {
		return nil, model.NewAlreadyLikedError()
	}

	post.Likes = post.Likes.Prepend(userID)
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	return post, nil
}

// Unlike は投稿のいいねを取り消す。エントリの除去はユーザーIDの完全一致で行う。
func (s *Service) Unlike(ctx context.Context, postID, userID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	if !post.Likes.Contains(userID) {
		return nil, model.NewNotLikedError()
	}

	post.Likes = post.Likes.Remove(userID)
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	return post, nil
}

// AddComment は投稿にコメントを追加する。
// コメント投稿者のスナップショットをコメントに複製する。
func (s *Service) AddComment(ctx context.Context, postID, authorID, text string) (*model.Post, error) {
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewEmptyTextError()
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	user, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(authorID)
	}

	comment := model.Comment{
		ID:       uuid.NewString(),
		User:     authorID,
		Username: user.Username,
		Name:     user.Name,
		Text:     text,
		Likes:    model.UserRefList{},
		Date:     time.Now(),
	}
	if profile, err := s.profileRepo.FindByUserID(ctx, authorID); err == nil && profile != nil {
		comment.ProfileImage = profile.ProfileImage
	}

	// 新しいコメントが先頭に来る
	post.Comments = append([]model.Comment{comment}, post.Comments...)
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	return post, nil
}

// LikeComment はコメントにいいねを追加する。
func (s *Service) LikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comment := post.FindComment(commentID)
	if comment == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}

	if comment.Likes.Contains(userID) {
		return nil, model.NewAlreadyLikedError()
	}

	comment.Likes = comment.Likes.Prepend(userID)
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	return post, nil
}

// UnlikeComment はコメントのいいねを取り消す。
func (s *Service) UnlikeComment(ctx context.Context, postID, commentID, userID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comment := post.FindComment(commentID)
	if comment == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}

	if !comment.Likes.Contains(userID) {
		return nil, model.NewNotLikedError()
	}

	comment.Likes = comment.Likes.Remove(userID)
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	return post, nil
}
