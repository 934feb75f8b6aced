package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache 进程内缓存
type LRUCache struct {
	lru *lru.Cache[string, []byte]
}

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{lru: c}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.lru.Get(key)
	return data, ok, nil
}

func (c *LRUCache) Set(_ context.Context, key string, data []byte) error {
	c.lru.Add(key, data)
	return nil
}

func (c *LRUCache) Len() int {
	return c.lru.Len()
}
