// Package profile はプロフィール管理とフォロー関係のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mura/internal/metrics"
	"github.com/hitoshi/mura/internal/model"
	"github.com/hitoshi/mura/internal/repository"
	"github.com/hitoshi/mura/internal/security"
)

// Service はプロフィール管理のサービス層。
// プロフィールのCRUDと、2つのプロフィールドキュメントにまたがる
// フォローエッジの相互更新を提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	postRepo    repository.PostRepository
	sanitizer   security.ContentSanitizerService
	favicon     FaviconFetcherService
	collector   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// faviconとcollectorはnilを許容する（機能無効化）。
func NewService(
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	postRepo repository.PostRepository,
	sanitizer security.ContentSanitizerService,
	favicon FaviconFetcherService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		postRepo:    postRepo,
		sanitizer:   sanitizer,
		favicon:     favicon,
		collector:   collector,
	}
}

// GetByUserID は指定ユーザーのプロフィールを取得する。
func (s *Service) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}
	return profile, nil
}

// ListAll は全プロフィールを返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.profileRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	return profiles, nil
}

// Upsert はプロフィールを作成または更新する（冪等）。
// 既存プロフィールがあればname/bio/websiteをフィールド更新し、
// なければ新規作成する。websiteが設定されている場合は
// ベストエフォートでfaviconスナップショットを更新する。
func (s *Service) Upsert(ctx context.Context, userID, name, bio, website string) (*model.Profile, error) {
	name = s.sanitizer.Sanitize(name)
	bio = s.sanitizer.Sanitize(bio)

	if name == "" {
		return nil, model.NewNameRequiredError()
	}

	existing, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	if existing != nil {
		if err := s.profileRepo.UpdateFields(ctx, userID, name, bio, website); err != nil {
			return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
		}
	} else {
		newProfile := &model.Profile{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      name,
			Bio:       bio,
			Website:   website,
			Follower:  model.UserRefList{},
			Following: model.UserRefList{},
			CreatedAt: time.Now(),
		}
		if err := s.profileRepo.Create(ctx, newProfile); err != nil {
			return nil, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
		}
	}

	// faviconスナップショットはベストエフォート: 失敗してもUpsertは成功する
	s.refreshFavicon(ctx, userID, website)

	return s.GetByUserID(ctx, userID)
}

// refreshFavicon はWebsiteのfaviconを取得してプロフィールに保存する。
// 取得失敗・保存失敗はログのみ記録する。
func (s *Service) refreshFavicon(ctx context.Context, userID, website string) {
	if s.favicon == nil || website == "" {
		return
	}

	data, mimeType, err := s.favicon.FetchFaviconForSite(ctx, website)
	if err != nil || len(data) == 0 {
		return
	}

	if err := s.profileRepo.UpdateFavicon(ctx, userID, data, mimeType); err != nil {
		slog.Warn("faviconの保存に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// UpdateImage はプロフィール画像のファイル名参照を更新する。
// ファイル自体の保存はハンドラー層のImageStoreが行う。
func (s *Service) UpdateImage(ctx context.Context, userID, filename string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}

	if err := s.profileRepo.UpdateImage(ctx, userID, filename); err != nil {
		return nil, fmt.Errorf("プロフィール画像の更新に失敗しました: %w", err)
	}

	profile.ProfileImage = filename
	return profile, nil
}

// Delete はアカウント削除を実行する。
// 削除順序: posts → profile → sessions → user。
// 他プロフィールが保持するフォローエッジは削除しない（ベストエフォート、
// 残った片側エッジは修復ワーカーが回収する）。
func (s *Service) Delete(ctx context.Context, userID string) error {
	slog.Info("アカウント削除を開始します",
		slog.String("user_id", userID),
	)

	if s.postRepo != nil {
		if err := s.postRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("投稿の削除に失敗しました: %w", err)
		}
	}

	if err := s.profileRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}

	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("アカウント削除が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// Follow はフォローエッジを作成する。
// 呼び出し側プロフィールのfollowingと相手プロフィールのfollowerを
// それぞれ独立に書き込む。2つの書き込みはトランザクションで保護されず、
// 1回目成功後の失敗は片側エッジとして残る（修復ワーカーが補完する）。
// 自己フォロー判定はユーザーIDの比較で行う。
func (s *Service) Follow(ctx context.Context, followerUserID, targetUserID string) (*model.Profile, *model.Profile, error) {
	following, err := s.profileRepo.FindByUserID(ctx, followerUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if following == nil {
		return nil, nil, model.NewProfileNotFoundError(followerUserID)
	}

	target, err := s.profileRepo.FindByUserID(ctx, targetUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, nil, model.NewProfileNotFoundError(targetUserID)
	}

	if following.UserID == target.UserID {
		return nil, nil, model.NewSelfFollowError()
	}

	if following.Following.Contains(targetUserID) {
		return nil, nil, model.NewAlreadyFollowingError(targetUserID)
	}

	following.Following = following.Following.Prepend(targetUserID)
	if err := s.profileRepo.SaveEdges(ctx, following); err != nil {
		return nil, nil, fmt.Errorf("フォローエッジの保存に失敗しました: %w", err)
	}

	// 2回目の書き込み。失敗しても1回目はロールバックしない。
	target.Follower = target.Follower.Prepend(followerUserID)
	if err := s.profileRepo.SaveEdges(ctx, target); err != nil {
		return nil, nil, fmt.Errorf("フォロワーエッジの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordFollow()
	}

	return following, target, nil
}

// Unfollow はフォローエッジを削除する。
// エントリの除去は必ずユーザーIDの完全一致で行う。
func (s *Service) Unfollow(ctx context.Context, followerUserID, targetUserID string) (*model.Profile, *model.Profile, error) {
	following, err := s.profileRepo.FindByUserID(ctx, followerUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if following == nil {
		return nil, nil, model.NewProfileNotFoundError(followerUserID)
	}

	target, err := s.profileRepo.FindByUserID(ctx, targetUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, nil, model.NewProfileNotFoundError(targetUserID)
	}

	if !following.Following.Contains(targetUserID) {
		return nil, nil, model.NewNotFollowingError(targetUserID)
	}

	following.Following = following.Following.Remove(targetUserID)
	if err := s.profileRepo.SaveEdges(ctx, following); err != nil {
		return nil, nil, fmt.Errorf("フォローエッジの保存に失敗しました: %w", err)
	}

	target.Follower = target.Follower.Remove(followerUserID)
	if err := s.profileRepo.SaveEdges(ctx, target); err != nil {
		return nil, nil, fmt.Errorf("フォロワーエッジの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordUnfollow()
	}

	return following, target, nil
}
