package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/mura/internal/model"
)

// PostgresGroupRepo はPostgreSQLを使用したグループリポジトリ。
// members/admins/follower/postsはJSONB列に保持し、行単位で原子的に書き込む。
type PostgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo はPostgresGroupRepoを生成する。
func NewPostgresGroupRepo(db *sql.DB) *PostgresGroupRepo {
	return &PostgresGroupRepo{db: db}
}

const groupColumns = `id, name, description, group_image, members, admins,
	follower, posts, private, created_at`

// scanGroup は1行をGroupモデルに読み込む。
func scanGroup(row interface{ Scan(...any) error }) (*model.Group, error) {
	group := &model.Group{}
	var membersJSON, adminsJSON, followerJSON, postsJSON []byte

	err := row.Scan(
		&group.ID, &group.Name, &group.Desc, &group.GroupImage,
		&membersJSON, &adminsJSON, &followerJSON, &postsJSON,
		&group.Private, &group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(membersJSON, &group.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}
	if err := json.Unmarshal(adminsJSON, &group.Admins); err != nil {
		return nil, fmt.Errorf("failed to decode admins: %w", err)
	}
	if err := json.Unmarshal(followerJSON, &group.Follower); err != nil {
		return nil, fmt.Errorf("failed to decode follower: %w", err)
	}
	if err := json.Unmarshal(postsJSON, &group.Posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	return group, nil
}

// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1`,
		id,
	)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	return group, nil
}

// FindByName はグループ名で検索する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByName(ctx context.Context, name string) (*model.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE name = $1`,
		name,
	)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by name: %w", err)
	}

	return group, nil
}

// FindAll は全グループを作成日時降順で返す。
func (r *PostgresGroupRepo) FindAll(ctx context.Context) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// Create はグループを作成する。
func (r *PostgresGroupRepo) Create(ctx context.Context, group *model.Group) error {
	membersJSON, err := marshalRefList(group.Members)
	if err != nil {
		return err
	}
	adminsJSON, err := marshalRefList(group.Admins)
	if err != nil {
		return err
	}
	followerJSON, err := marshalRefList(group.Follower)
	if err != nil {
		return err
	}
	postsJSON, err := marshalPostRefList(group.Posts)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, group_image, members, admins,
		                     follower, posts, private, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		group.ID, group.Name, group.Desc, group.GroupImage,
		membersJSON, adminsJSON, followerJSON, postsJSON,
		group.Private, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// UpdateFields はname/description/privateをフィールド指定で更新する。
// メンバーシップ列や画像列には触れない。
func (r *PostgresGroupRepo) UpdateFields(ctx context.Context, id, name, desc string, private bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = $2, description = $3, private = $4 WHERE id = $1`,
		id, name, desc, private,
	)
	if err != nil {
		return fmt.Errorf("failed to update group fields: %w", err)
	}
	return nil
}

// UpdateImage はグループ画像のファイル名参照を更新する。
func (r *PostgresGroupRepo) UpdateImage(ctx context.Context, id, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups SET group_image = $2 WHERE id = $1`,
		id, filename,
	)
	if err != nil {
		return fmt.Errorf("failed to update group image: %w", err)
	}
	return nil
}

// Save はドキュメント全体を上書き保存する。
// メンバーシップと投稿参照の変更はこの経路で永続化される（行単位で原子的）。
func (r *PostgresGroupRepo) Save(ctx context.Context, group *model.Group) error {
	membersJSON, err := marshalRefList(group.Members)
	if err != nil {
		return err
	}
	adminsJSON, err := marshalRefList(group.Admins)
	if err != nil {
		return err
	}
	followerJSON, err := marshalRefList(group.Follower)
	if err != nil {
		return err
	}
	postsJSON, err := marshalPostRefList(group.Posts)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE groups
		 SET name = $2, description = $3, group_image = $4, members = $5,
		     admins = $6, follower = $7, posts = $8, private = $9
		 WHERE id = $1`,
		group.ID, group.Name, group.Desc, group.GroupImage,
		membersJSON, adminsJSON, followerJSON, postsJSON, group.Private,
	)
	if err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}

// marshalPostRefList はPostRefListをJSONB列用のバイト列に変換する。
// nilリストは空配列として永続化する。
func marshalPostRefList(list model.PostRefList) ([]byte, error) {
	if list == nil {
		list = model.PostRefList{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post refs: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ GroupRepository = (*PostgresGroupRepo)(nil)
