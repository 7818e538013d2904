// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 本コアではIDとスナップショット用の表示名のみを参照する。
type User struct {
	ID        string
	Username  string
	Name      string
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// トークンの発行・検証は外部のIdentity Resolverの責務であり、
// 本サービスはセッションIDからユーザーIDへの解決のみを行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
