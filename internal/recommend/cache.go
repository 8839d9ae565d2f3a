package recommend

import (
	"container/list"
	"sync"

	"github.com/hyperjump/habitsim/internal/tfidf"
)

// CorpusCache is an LRU of vectorized corpora keyed by document fingerprint.
// Cached corpora are shared and must not be modified.
type CorpusCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value *tfidf.Corpus
}

// NewCorpusCache creates a cache holding at most capacity corpora (minimum 1).
func NewCorpusCache(capacity int) *CorpusCache {
	if capacity < 1 {
		capacity = 1
	}
	return &CorpusCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached corpus for key if present.
func (c *CorpusCache) Get(key string) (*tfidf.Corpus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the corpus for key, evicting the least recently used entry if at capacity.
func (c *CorpusCache) Set(key string, value *tfidf.Corpus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached corpora.
func (c *CorpusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
