package upload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/mura/internal/model"
)

func TestSave_WritesFileWithMimeDerivedExtension(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, 1024)

	tests := []struct {
		mimeType string
		wantName string
	}{
		{"image/png", "entity-1.png"},
		{"image/jpg", "entity-1.jpg"},
		{"image/jpeg", "entity-1.jpeg"},
	}

	for _, tt := range tests {
		filename, err := store.Save("entity-1", tt.mimeType, bytes.NewReader([]byte("image-bytes")))
		if err != nil {
			t.Fatalf("Saveが失敗 (%s): %v", tt.mimeType, err)
		}
		if filename != tt.wantName {
			t.Errorf("ファイル名が%sではなく%s", tt.wantName, filename)
		}

		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			t.Fatalf("保存されたファイルが読めない: %v", err)
		}
		if string(data) != "image-bytes" {
			t.Errorf("ファイル内容が不正: %s", data)
		}
	}
}

func TestSave_RejectsDisallowedMime(t *testing.T) {
	store := NewImageStore(t.TempDir(), 1024)

	for _, mimeType := range []string{"image/gif", "image/svg+xml", "text/html", ""} {
		_, err := store.Save("entity-1", mimeType, bytes.NewReader([]byte("data")))
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidImage {
			t.Errorf("MIME %q が拒否されなかった: %v", mimeType, err)
		}
	}
}

func TestSave_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, 1024)

	if _, err := store.Save("entity-1", "image/png", bytes.NewReader([]byte("old"))); err != nil {
		t.Fatalf("Saveが失敗: %v", err)
	}
	if _, err := store.Save("entity-1", "image/png", bytes.NewReader([]byte("new"))); err != nil {
		t.Fatalf("再アップロードが失敗: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "entity-1.png"))
	if err != nil {
		t.Fatalf("保存されたファイルが読めない: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("既存ファイルが上書きされていない: %s", data)
	}
}

func TestSave_RejectsOversizedImage(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, 10)

	_, err := store.Save("entity-1", "image/png", bytes.NewReader(make([]byte, 11)))
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeImageTooLarge {
		t.Fatalf("サイズ超過が拒否されなかった: %v", err)
	}

	// 切り捨てられた不完全なファイルを残さない
	if _, statErr := os.Stat(filepath.Join(dir, "entity-1.png")); !os.IsNotExist(statErr) {
		t.Error("サイズ超過のファイルがディスクに残っている")
	}
}

func TestSave_AcceptsImageAtExactSizeLimit(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, 10)

	filename, err := store.Save("entity-1", "image/png", bytes.NewReader(make([]byte, 10)))
	if err != nil {
		t.Fatalf("上限ちょうどのサイズでSaveが失敗: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("保存されたファイルが読めない: %v", err)
	}
	if len(data) != 10 {
		t.Errorf("ファイルサイズ = %d, want 10", len(data))
	}
}

func TestRemove_DeletesSavedFile(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, 1024)

	filename, err := store.Save("entity-1", "image/png", bytes.NewReader([]byte("image-bytes")))
	if err != nil {
		t.Fatalf("Saveが失敗: %v", err)
	}

	store.Remove(filename)

	if _, statErr := os.Stat(filepath.Join(dir, filename)); !os.IsNotExist(statErr) {
		t.Error("Removeでファイルが削除されていない")
	}
}

func TestRemove_MissingFileIsNoop(t *testing.T) {
	store := NewImageStore(t.TempDir(), 1024)
	store.Remove("no-such-file.png")
}
