// Package cache はMemcachedによる読み取りキャッシュを提供する。
// 公開読み取り（グループ一覧・グループ取得）の負荷軽減に使用する。
// キャッシュは常にベストエフォートであり、失敗してもリクエストは失敗しない。
package cache

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Cache はMemcachedクライアントのラッパー。
// nilレシーバーでも全メソッドが安全に動作する（キャッシュ無効時はnilを使う）。
type Cache struct {
	client *memcache.Client
	ttl    int32
}

// New はMemcachedキャッシュを生成する。
// addrが空の場合はnilを返し、キャッシュを無効化する。
func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		client: memcache.New(addr),
		ttl:    int32(ttl.Seconds()),
	}
}

// GetJSON はキーの値を取得してvにデコードする。
// ヒットした場合のみtrueを返す。ミスとエラーは区別しない。
func (c *Cache) GetJSON(key string, v any) bool {
	if c == nil {
		return false
	}

	item, err := c.client.Get(key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			slog.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}

	if err := json.Unmarshal(item.Value, v); err != nil {
		slog.Warn("cache decode failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// SetJSON は値をJSONエンコードしてTTL付きで格納する。
func (c *Cache) SetJSON(key string, v any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: c.ttl,
	}); err != nil {
		slog.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Delete はキーを無効化する。書き込み系操作の後に呼ぶ。
func (c *Cache) Delete(keys ...string) {
	if c == nil {
		return
	}

	for _, key := range keys {
		if err := c.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
			slog.Warn("cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
