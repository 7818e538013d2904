// Package model はドメインモデルを定義する。
package model

import "time"

// Comment は投稿に埋め込まれたコメントを表す。
// username/name/profileImageはコメント時点の投稿者スナップショットであり、
// その後のプロフィール変更には追随しない。
type Comment struct {
	ID           string      `json:"id"`
	User         string      `json:"user"`
	Username     string      `json:"username"`
	Name         string      `json:"name"`
	ProfileImage string      `json:"profileImage"`
	Text         string      `json:"text"`
	Likes        UserRefList `json:"likes"`
	Date         time.Time   `json:"date"`
}

// Post は投稿ドキュメントを表す。
// コメントは投稿に埋め込まれ、投稿と同一のドキュメントとして
// 1回の書き込みで永続化される（Aggregate単位の一貫性）。
type Post struct {
	ID           string
	UserID       string
	Username     string
	Name         string
	ProfileImage string
	Text         string
	Likes        UserRefList
	Comments     []Comment
	CreatedAt    time.Time
}

// FindComment は指定IDのコメントへのポインタを返す。見つからない場合はnilを返す。
func (p *Post) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}
