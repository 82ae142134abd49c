package session

import (
	"sync"
)

// lruCache is a thread-safe least recently used set of sessions. Sessions
// pushed out by a full cache are handed to onEvict.
type lruCache struct {
	mutex    sync.RWMutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode // Most recently used
	tail     *cacheNode // Least recently used
	hits     int64
	misses   int64
	evicted  int64
	onEvict  func(*Session)
}

type cacheNode struct {
	key   string
	value *Session
	prev  *cacheNode
	next  *cacheNode
}

func newLRUCache(capacity int, onEvict func(*Session)) *lruCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	cache := &lruCache{
		capacity: capacity,
		items:    make(map[string]*cacheNode),
		onEvict:  onEvict,
	}

	// Sentinel head and tail
	cache.head = &cacheNode{}
	cache.tail = &cacheNode{}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// get returns a session and marks it as recently used
func (c *lruCache) get(key string) (*Session, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, exists := c.items[key]; exists {
		c.moveToFront(node)
		c.hits++
		return node.value, true
	}

	c.misses++
	return nil, false
}

// put adds a session. The eviction callback runs after the lock is released.
func (c *lruCache) put(key string, value *Session) {
	c.mutex.Lock()

	if node, exists := c.items[key]; exists {
		node.value = value
		c.moveToFront(node)
		c.mutex.Unlock()
		return
	}

	node := &cacheNode{key: key, value: value}
	c.addToFront(node)
	c.items[key] = node

	var victim *Session
	if len(c.items) > c.capacity {
		victim = c.evictLRU()
	}
	c.mutex.Unlock()

	if victim != nil && c.onEvict != nil {
		c.onEvict(victim)
	}
}

// remove deletes a session and returns it
func (c *lruCache) remove(key string) (*Session, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, exists := c.items[key]; exists {
		c.removeNode(node)
		delete(c.items, key)
		return node.value, true
	}

	return nil, false
}

// drain empties the cache and returns its sessions, most recently used first
func (c *lruCache) drain() []*Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	sessions := make([]*Session, 0, len(c.items))
	for current := c.head.next; current != c.tail; current = current.next {
		sessions = append(sessions, current.value)
	}

	c.items = make(map[string]*cacheNode)
	c.head.next = c.tail
	c.tail.prev = c.head
	return sessions
}

// values lists the sessions from most to least recently used without touching the order
func (c *lruCache) values() []*Session {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	sessions := make([]*Session, 0, len(c.items))
	for current := c.head.next; current != c.tail; current = current.next {
		sessions = append(sessions, current.value)
	}
	return sessions
}

func (c *lruCache) len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

func (c *lruCache) stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Evicted:  c.evicted,
		HitRate:  hitRate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *lruCache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *lruCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *lruCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *lruCache) evictLRU() *Session {
	lru := c.tail.prev
	if lru == c.head {
		return nil
	}
	c.removeNode(lru)
	delete(c.items, lru.key)
	c.evicted++
	return lru.value
}

// Stats describes session cache usage
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Evicted  int64   `json:"evicted"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}
