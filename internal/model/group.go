// Package model はドメインモデルを定義する。
package model

import "time"

// PostRef はグループに属する投稿IDへの参照を表す。
// Postドキュメント自体の所有権は投稿者にあり、参照の削除と
// ドキュメントの削除は独立した書き込みになる。
type PostRef struct {
	Post string `json:"post"`
}

// PostRefList はPostRefの順序付きリスト（新しい投稿が先頭）。
type PostRefList []PostRef

// Contains は指定投稿IDのエントリが存在するか判定する。
func (l PostRefList) Contains(postID string) bool {
	for _, ref := range l {
		if ref.Post == postID {
			return true
		}
	}
	return false
}

// Prepend は指定投稿IDのエントリをリスト先頭に追加した新しいリストを返す。
func (l PostRefList) Prepend(postID string) PostRefList {
	return append(PostRefList{{Post: postID}}, l...)
}

// Remove は指定投稿IDのエントリを完全一致で取り除いた新しいリストを返す。
func (l PostRefList) Remove(postID string) PostRefList {
	result := make(PostRefList, 0, len(l))
	for _, ref := range l {
		if ref.Post != postID {
			result = append(result, ref)
		}
	}
	return result
}

// Group はグループドキュメントを表す。
// 不変条件: admins ⊆ members（脱退時はカスケード降格で維持する）、
// 作成者は作成時点でmembersとadminsの両方に含まれる。
type Group struct {
	ID         string
	Name       string
	Desc       string
	GroupImage string
	Members    UserRefList
	Admins     UserRefList
	Follower   UserRefList
	Posts      PostRefList
	Private    bool
	CreatedAt  time.Time
}
