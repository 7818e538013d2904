// Package repository はデータ永続化のインターフェースを定義する。
//
// ストレージはドキュメントストアとして扱う: 各エンティティは1行のドキュメントで、
// 非正規化されたコレクション（follower/members/likes等）はJSONB列に保持する。
// 1行への書き込みは原子的だが、複数ドキュメントにまたがる操作は
// トランザクションで保護されない。
package repository

import (
	"context"

	"github.com/hitoshi/mura/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、profiles、postsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールドキュメントの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は所有ユーザーIDでプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// FindAll は全プロフィールを作成日時降順で返す。
	FindAll(ctx context.Context) ([]*model.Profile, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// UpdateFields はname/bio/websiteをフィールド指定で更新する。
	UpdateFields(ctx context.Context, userID, name, bio, website string) error

	// UpdateImage はプロフィール画像のファイル名参照を更新する。
	UpdateImage(ctx context.Context, userID, filename string) error

	// UpdateFavicon はWebsiteのfaviconスナップショットを更新する。
	UpdateFavicon(ctx context.Context, userID string, data []byte, mimeType string) error

	// SaveEdges はfollower/followingの両エッジ列を1回の行更新で保存する。
	// 他プロフィールのドキュメントには触れない。
	SaveEdges(ctx context.Context, profile *model.Profile) error

	// DeleteByUserID は指定ユーザーのプロフィールを削除する。
	// 他プロフィールが保持するエッジは削除しない（修復ワーカーが回収する）。
	DeleteByUserID(ctx context.Context, userID string) error
}

// GroupRepository はグループドキュメントの永続化インターフェース。
type GroupRepository interface {
	// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Group, error)

	// FindByName はグループ名で検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Group, error)

	// FindAll は全グループを作成日時降順で返す。
	FindAll(ctx context.Context) ([]*model.Group, error)

	// Create はグループを作成する。
	Create(ctx context.Context, group *model.Group) error

	// UpdateFields はname/description/privateをフィールド指定で更新する。
	UpdateFields(ctx context.Context, id, name, desc string, private bool) error

	// UpdateImage はグループ画像のファイル名参照を更新する。
	UpdateImage(ctx context.Context, id, filename string) error

	// Save はドキュメント全体（members/admins/follower/posts含む）を上書き保存する。
	Save(ctx context.Context, group *model.Group) error
}

// PostRepository は投稿ドキュメントの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindAll は全投稿を作成日時降順で返す。
	FindAll(ctx context.Context) ([]*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Save はドキュメント全体（likes/comments含む）を上書き保存する。
	Save(ctx context.Context, post *model.Post) error

	// DeleteByID は指定IDの投稿を削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全投稿を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
