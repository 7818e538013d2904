// Package model はドメインモデルを定義する。
package model

import "time"

// UserRef はユーザーIDへの参照（フォローエッジやメンバーシップの1要素）を表す。
// ドキュメント内ではJSONB配列の要素として永続化される。
type UserRef struct {
	User string `json:"user"`
}

// UserRefList はUserRefの順序付きリスト。
// 挿入順は観測可能（新しいエッジが先頭）なため配列のまま永続化し、
// 所属判定はSetでO(1)の完全一致比較で行う。
type UserRefList []UserRef

// Contains は指定ユーザーIDのエントリが存在するか判定する。
// 比較は必ずID全体の完全一致で行う（部分一致・位置探索は使用しない）。
func (l UserRefList) Contains(userID string) bool {
	_, ok := l.Set()[userID]
	return ok
}

// Set はリストをユーザーIDキーの集合に変換する。
// 1リクエスト内で複数回の所属判定を行う場合に使用する。
func (l UserRefList) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(l))
	for _, ref := range l {
		set[ref.User] = struct{}{}
	}
	return set
}

// Prepend は指定ユーザーIDのエントリをリスト先頭に追加した新しいリストを返す。
func (l UserRefList) Prepend(userID string) UserRefList {
	return append(UserRefList{{User: userID}}, l...)
}

// Remove は指定ユーザーIDのエントリを完全一致で取り除いた新しいリストを返す。
func (l UserRefList) Remove(userID string) UserRefList {
	result := make(UserRefList, 0, len(l))
	for _, ref := range l {
		if ref.User != userID {
			result = append(result, ref)
		}
	}
	return result
}

// Profile はユーザーごとのプロフィールドキュメントを表す。
// follower/followingのエッジは非正規化されており、相手側ドキュメントと
// 独立に書き込まれる（トランザクションなし）。
type Profile struct {
	ID           string
	UserID       string
	Name         string
	Bio          string
	Website      string
	ProfileImage string

	// FaviconData / FaviconMime はWebsiteのfaviconスナップショット。
	// 取得失敗時は空のまま保持する。
	FaviconData []byte
	FaviconMime string

	Follower  UserRefList
	Following UserRefList
	CreatedAt time.Time
}
