// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, relation, group, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProfileNotFound  = "PROFILE_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeGroupNotFound    = "GROUP_NOT_FOUND"
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeCommentNotFound  = "COMMENT_NOT_FOUND"
	ErrCodeSelfFollow       = "SELF_FOLLOW"
	ErrCodeAlreadyFollowing = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing     = "NOT_FOLLOWING"
	ErrCodeGroupNameTaken   = "GROUP_NAME_TAKEN"
	ErrCodeAlreadyMember    = "ALREADY_MEMBER"
	ErrCodeNotMember        = "NOT_MEMBER"
	ErrCodeMemberRequired   = "MEMBER_REQUIRED"
	ErrCodeAlreadyAdmin     = "ALREADY_ADMIN"
	ErrCodeNotAdmin         = "NOT_ADMIN"
	ErrCodeAdminRequired    = "ADMIN_REQUIRED"
	ErrCodeNotAuthor        = "NOT_AUTHOR"
	ErrCodeAlreadyLiked     = "ALREADY_LIKED"
	ErrCodeNotLiked         = "NOT_LIKED"
	ErrCodeEmptyText        = "EMPTY_TEXT"
	ErrCodeNameRequired     = "NAME_REQUIRED"
	ErrCodeNoFileUploaded   = "NO_FILE_UPLOADED"
	ErrCodeInvalidImage     = "INVALID_IMAGE"
	ErrCodeImageTooLarge    = "IMAGE_TOO_LARGE"
)

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("指定されたユーザーのプロフィールが見つかりません: %s", userID),
		Category: "relation",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewGroupNotFoundError はグループ未検出エラーを生成する。
func NewGroupNotFoundError(groupID string) *APIError {
	return &APIError{
		Code:     ErrCodeGroupNotFound,
		Message:  fmt.Sprintf("指定されたグループが見つかりません: %s", groupID),
		Category: "group",
		Action:   "グループIDを確認してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "post",
		Action:   "コメントIDを確認してください。",
	}
}

// NewSelfFollowError は自己フォローエラーを生成する。
// 判定はプロフィールドキュメントのIDではなく、所有ユーザーIDの比較で行う。
func NewSelfFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFollow,
		Message:  "自分自身をフォローすることはできません。",
		Category: "validation",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewAlreadyFollowingError はフォロー済みエラーを生成する。
func NewAlreadyFollowingError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  fmt.Sprintf("すでにフォローしています: %s", userID),
		Category: "relation",
		Action:   "フォロー状態を確認してください。",
	}
}

// NewNotFollowingError は未フォローエラーを生成する。
func NewNotFollowingError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  fmt.Sprintf("現在フォローしていません: %s", userID),
		Category: "relation",
		Action:   "フォロー状態を確認してください。",
	}
}

// NewGroupNameTakenError はグループ名重複エラーを生成する。
func NewGroupNameTakenError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeGroupNameTaken,
		Message:  fmt.Sprintf("同名のグループがすでに存在します: %s", name),
		Category: "group",
		Action:   "別のグループ名を指定してください。",
	}
}

// NewAlreadyMemberError はメンバー重複エラーを生成する。
func NewAlreadyMemberError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyMember,
		Message:  "すでにこのグループのメンバーです。",
		Category: "group",
		Action:   "参加状態を確認してください。",
	}
}

// NewNotMemberError は非メンバーエラーを生成する。
// 操作対象（脱退者・昇降格対象）がメンバーでない場合に使用する。
func NewNotMemberError() *APIError {
	return &APIError{
		Code:     ErrCodeNotMember,
		Message:  "このグループのメンバーではありません。",
		Category: "group",
		Action:   "先にグループに参加してください。",
	}
}

// NewMemberRequiredError はメンバー限定操作の拒否エラーを生成する。
// グループへの投稿などメンバーにのみ許可される操作で使用する。
func NewMemberRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeMemberRequired,
		Message:  "この操作はグループのメンバーにのみ許可されています。",
		Category: "auth",
		Action:   "先にグループに参加してください。",
	}
}

// NewAlreadyAdminError は管理者重複エラーを生成する。
func NewAlreadyAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyAdmin,
		Message:  "このユーザーはすでに管理者です。",
		Category: "group",
		Action:   "管理者一覧を確認してください。",
	}
}

// NewNotAdminError は降格対象が管理者でない場合のエラーを生成する。
func NewNotAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAdmin,
		Message:  "このユーザーは管理者ではありません。",
		Category: "group",
		Action:   "管理者一覧を確認してください。",
	}
}

// NewAdminRequiredError は管理者権限エラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "この操作にはグループ管理者の権限が必要です。",
		Category: "auth",
		Action:   "グループ管理者に依頼してください。",
	}
}

// NewNotAuthorError は投稿者以外による削除エラーを生成する。
func NewNotAuthorError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthor,
		Message:  "この投稿を操作する権限がありません。",
		Category: "auth",
		Action:   "自分の投稿のみ削除できます。",
	}
}

// NewAlreadyLikedError はいいね重複エラーを生成する。
func NewAlreadyLikedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyLiked,
		Message:  "すでにいいね済みです。",
		Category: "post",
		Action:   "いいね状態を確認してください。",
	}
}

// NewNotLikedError は未いいねエラーを生成する。
func NewNotLikedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLiked,
		Message:  "まだいいねしていません。",
		Category: "post",
		Action:   "いいね状態を確認してください。",
	}
}

// NewEmptyTextError は本文未入力エラーを生成する。
func NewEmptyTextError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyText,
		Message:  "本文を入力してください。",
		Category: "validation",
		Action:   "本文を入力して再度お試しください。",
	}
}

// NewNameRequiredError は名前未入力エラーを生成する。
func NewNameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeNameRequired,
		Message:  "名前を入力してください。",
		Category: "validation",
		Action:   "名前を入力して再度お試しください。",
	}
}

// NewNoFileUploadedError はファイル未添付エラーを生成する。
func NewNoFileUploadedError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFileUploaded,
		Message:  "ファイルがアップロードされていません。",
		Category: "validation",
		Action:   "imageフィールドにファイルを添付してください。",
	}
}

// NewInvalidImageError は画像形式エラーを生成する。
func NewInvalidImageError(mimeType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("サポートされていない画像形式です: %s", mimeType),
		Category: "validation",
		Action:   "png、jpg、jpegのいずれかの画像を指定してください。",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
func NewImageTooLargeError(maxSize int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("画像サイズが上限を超えています（上限: %dバイト）。", maxSize),
		Category: "validation",
		Action:   "より小さい画像を指定してください。",
	}
}
