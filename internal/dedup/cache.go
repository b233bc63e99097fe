package dedup

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCapacity = 50

// Cache 有界的已处理 key 集合，满了以后按插入顺序淘汰最早的 key。
// 只用 Contains / ContainsOrAdd，两者都不刷新最近使用时间，所以淘汰顺序就是 FIFO。
type Cache struct {
	mu    sync.Mutex
	items *lru.Cache[string, struct{}]
	cap   int
}

func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("dedup capacity must be positive, got %d", capacity)
	}
	items, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &Cache{items: items, cap: capacity}, nil
}

// Seen 只查询，不改变淘汰顺序
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Contains(key)
}

// Record 记录 key；已存在时什么都不做
func (c *Cache) Record(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.ContainsOrAdd(key, struct{}{})
}

// CheckAndRecord 原子地检查并记录，返回 key 之前是否已存在
func (c *Cache) CheckAndRecord(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, _ := c.items.ContainsOrAdd(key, struct{}{})
	return ok
}

// Forget 删除 key
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

func (c *Cache) Capacity() int { return c.cap }
