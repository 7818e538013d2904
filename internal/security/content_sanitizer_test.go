package security

import (
	"strings"
	"testing"
)

// scriptタグとその内容が除去されることを検証
func TestSanitize_RemovesScriptTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`hello <script>alert("xss")</script>world`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("expected script element removed, got %q", got)
	}
}

// プレーンテキストが変更されないことを検証
func TestSanitize_PlainTextUnchanged(t *testing.T) {
	s := NewContentSanitizer()

	input := "今日はいい天気ですね"
	if got := s.Sanitize(input); got != input {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

// HTMLタグが除去されてテキストのみ残ることを検証
func TestSanitize_StripsAllTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<b>bold</b> and <a href="https://example.com">link</a>`)
	if got != "bold and link" {
		t.Errorf("expected all tags stripped, got %q", got)
	}
}

// 前後の空白が除去されることを検証
func TestSanitize_TrimsWhitespace(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize("  hello  "); got != "hello" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}

// 冪等性: サニタイズ済みテキストを再度サニタイズしても変化しないことを検証
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<i>text</i> with more text`
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("expected idempotent sanitization: first=%q second=%q", first, second)
	}
}

// 空文字列の入力には空文字列を返すことを検証
func TestSanitize_EmptyString(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
