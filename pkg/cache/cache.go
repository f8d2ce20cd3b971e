package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) (string, bool)

	// Set 设置缓存值
	Set(ctx context.Context, key, value string, expiration time.Duration) error

	// Add 仅当键不存在时写入，返回是否写入成功。
	// 冷却闸门依赖该操作的原子性。
	Add(ctx context.Context, key, value string, expiration time.Duration) bool

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) bool

	// Close 释放底层资源
	Close() error
}

type Config struct {
	Type  string // "gocache" 或 "redis"
	Redis RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}
