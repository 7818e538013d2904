package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/mura/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// likes/commentsは投稿ドキュメントに埋め込まれ、1行の更新で永続化される。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `id, user_id, username, name, profile_image, text,
	likes, comments, created_at`

// scanPost は1行をPostモデルに読み込む。
func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	post := &model.Post{}
	var likesJSON, commentsJSON []byte

	err := row.Scan(
		&post.ID, &post.UserID, &post.Username, &post.Name,
		&post.ProfileImage, &post.Text,
		&likesJSON, &commentsJSON, &post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(likesJSON, &post.Likes); err != nil {
		return nil, fmt.Errorf("failed to decode likes: %w", err)
	}
	if err := json.Unmarshal(commentsJSON, &post.Comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}

	return post, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// FindAll は全投稿を作成日時降順で返す。
func (r *PostgresPostRepo) FindAll(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	likesJSON, err := marshalRefList(post.Likes)
	if err != nil {
		return err
	}
	commentsJSON, err := marshalComments(post.Comments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, username, name, profile_image, text,
		                    likes, comments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.UserID, post.Username, post.Name, post.ProfileImage,
		post.Text, likesJSON, commentsJSON, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Save はドキュメント全体（likes/comments含む）を上書き保存する。
func (r *PostgresPostRepo) Save(ctx context.Context, post *model.Post) error {
	likesJSON, err := marshalRefList(post.Likes)
	if err != nil {
		return err
	}
	commentsJSON, err := marshalComments(post.Comments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE posts SET text = $2, likes = $3, comments = $4 WHERE id = $1`,
		post.ID, post.Text, likesJSON, commentsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの投稿を削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全投稿を削除する。
func (r *PostgresPostRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user posts: %w", err)
	}
	return nil
}

// marshalComments はコメント列をJSONB列用のバイト列に変換する。
// nilスライスは空配列として永続化する。
func marshalComments(comments []model.Comment) ([]byte, error) {
	if comments == nil {
		comments = []model.Comment{}
	}
	data, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
