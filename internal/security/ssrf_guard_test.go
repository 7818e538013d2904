package security

import (
	"testing"
	"time"
)

// 公開URLが検証を通過することを検証
func TestValidateURL_AllowsPublicURLs(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"https://example.com",
		"http://example.com/path?query=1",
		"https://blog.example.co.jp/articles",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("expected %s to be allowed, got error: %v", u, err)
		}
	}
}

// プライベートIP・ループバック・メタデータIPがブロックされることを検証
func TestValidateURL_BlocksPrivateAddresses(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"http://10.0.0.1/",
		"http://172.16.0.1/",
		"http://192.168.1.1/",
		"http://127.0.0.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost/",
		"http://[::1]/",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("expected %s to be blocked", u)
		}
	}
}

// http/https以外のスキームが拒否されることを検証
func TestValidateURL_RejectsDisallowedSchemes(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"gopher://example.com/",
		"",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

// NewSafeClientが有効なHTTPクライアントを返すことを検証
func TestNewSafeClient_ReturnsClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(5*time.Second, 1024*1024)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
