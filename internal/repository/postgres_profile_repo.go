package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/mura/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// follower/followingエッジはJSONB列に保持し、行単位で原子的に書き込む。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, user_id, name, bio, website, profile_image,
	favicon_data, favicon_mime, follower, following, created_at`

// scanProfile は1行をProfileモデルに読み込む。
func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	profile := &model.Profile{}
	var followerJSON, followingJSON []byte
	var faviconData []byte

	err := row.Scan(
		&profile.ID, &profile.UserID, &profile.Name, &profile.Bio,
		&profile.Website, &profile.ProfileImage,
		&faviconData, &profile.FaviconMime,
		&followerJSON, &followingJSON, &profile.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.FaviconData = faviconData
	if err := json.Unmarshal(followerJSON, &profile.Follower); err != nil {
		return nil, fmt.Errorf("failed to decode follower edges: %w", err)
	}
	if err := json.Unmarshal(followingJSON, &profile.Following); err != nil {
		return nil, fmt.Errorf("failed to decode following edges: %w", err)
	}

	return profile, nil
}

// FindByUserID は所有ユーザーIDでプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`,
		userID,
	)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return profile, nil
}

// FindAll は全プロフィールを作成日時降順で返す。
func (r *PostgresProfileRepo) FindAll(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	followerJSON, err := marshalRefList(profile.Follower)
	if err != nil {
		return err
	}
	followingJSON, err := marshalRefList(profile.Following)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, name, bio, website, profile_image,
		                       favicon_data, favicon_mime, follower, following, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		profile.ID, profile.UserID, profile.Name, profile.Bio, profile.Website,
		profile.ProfileImage, profile.FaviconData, profile.FaviconMime,
		followerJSON, followingJSON, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateFields はname/bio/websiteをフィールド指定で更新する。
// エッジ列やイメージ列には触れない。
func (r *PostgresProfileRepo) UpdateFields(ctx context.Context, userID, name, bio, website string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET name = $2, bio = $3, website = $4 WHERE user_id = $1`,
		userID, name, bio, website,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile fields: %w", err)
	}
	return nil
}

// UpdateImage はプロフィール画像のファイル名参照を更新する。
func (r *PostgresProfileRepo) UpdateImage(ctx context.Context, userID, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET profile_image = $2 WHERE user_id = $1`,
		userID, filename,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile image: %w", err)
	}
	return nil
}

// UpdateFavicon はWebsiteのfaviconスナップショットを更新する。
func (r *PostgresProfileRepo) UpdateFavicon(ctx context.Context, userID string, data []byte, mimeType string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET favicon_data = $2, favicon_mime = $3 WHERE user_id = $1`,
		userID, data, mimeType,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile favicon: %w", err)
	}
	return nil
}

// SaveEdges はfollower/followingの両エッジ列を1回の行更新で保存する。
// 相手側プロフィールの行には触れない（ドキュメント単位の原子性のみ）。
func (r *PostgresProfileRepo) SaveEdges(ctx context.Context, profile *model.Profile) error {
	followerJSON, err := marshalRefList(profile.Follower)
	if err != nil {
		return err
	}
	followingJSON, err := marshalRefList(profile.Following)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE profiles SET follower = $2, following = $3 WHERE user_id = $1`,
		profile.UserID, followerJSON, followingJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile edges: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーのプロフィールを削除する。
func (r *PostgresProfileRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// marshalRefList はUserRefListをJSONB列用のバイト列に変換する。
// nilリストは空配列として永続化する。
func marshalRefList(list model.UserRefList) ([]byte, error) {
	if list == nil {
		list = model.UserRefList{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user refs: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
