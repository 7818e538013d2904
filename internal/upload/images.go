// Package upload はプロフィール・グループ画像のファイル保存を提供する。
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hitoshi/mura/internal/model"
)

// imageExtByMime は受け入れる画像MIMEタイプと拡張子の対応。
// これ以外のMIMEタイプはすべて拒否する。
var imageExtByMime = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpeg",
}

// ImageStore は画像ファイルをローカルディレクトリに保存する。
// ファイル名は <エンティティID><拡張子> で、同一エンティティの
// 再アップロードは同名ファイルを上書きする（同一MIMEの場合）。
type ImageStore struct {
	dir     string
	maxSize int64
}

// NewImageStore はImageStoreの新しいインスタンスを生成する。
func NewImageStore(dir string, maxSize int64) *ImageStore {
	return &ImageStore{
		dir:     dir,
		maxSize: maxSize,
	}
}

// MaxSize はアップロードの最大サイズを返す。multipartフォーム解析の上限に使う。
func (s *ImageStore) MaxSize() int64 {
	return s.maxSize
}

// Save は画像を保存してファイル名を返す。
// MIMEタイプが許可リストにない場合はINVALID_IMAGE、
// サイズ上限を超える場合はIMAGE_TOO_LARGEエラーを返す。
func (s *ImageStore) Save(entityID, mimeType string, r io.Reader) (string, error) {
	ext, ok := imageExtByMime[mimeType]
	if !ok {
		return "", model.NewInvalidImageError(mimeType)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("画像ディレクトリの作成に失敗しました: %w", err)
	}

	filename := entityID + ext
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("画像ファイルの作成に失敗しました: %w", err)
	}
	defer f.Close()

	// 上限+1バイトまで読み、超過を途中切り捨てではなくエラーとして扱う
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("画像ファイルの書き込みに失敗しました: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return "", model.NewImageTooLargeError(s.maxSize)
	}

	return filename, nil
}

// Remove は保存済みの画像ファイルを削除する。
// 後続の永続化が失敗した場合の後始末に使う。ファイル未存在は無視する。
func (s *ImageStore) Remove(filename string) {
	path := filepath.Join(s.dir, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("画像ファイルの削除に失敗しました",
			"path", path,
			"error", err.Error(),
		)
	}
}
