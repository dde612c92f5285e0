// Package resources provides the engine's bounded result cache: an in-memory
// LRU over parsed pages keyed by normalized URL, spilling evicted entries to
// disk so a long crawl doesn't hold every page body in memory at once.
package resources

import (
	"bufio"
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	engmodels "github.com/99souls/webfetcher/engine/models"
)

type Config struct {
	CacheCapacity      int
	MaxInFlight        int
	SpillDirectory     string
	CheckpointPath     string
	CheckpointInterval time.Duration
}

type Manager struct {
	cfg          Config
	slots        chan struct{}
	mu           sync.Mutex
	lru          *list.List
	cache        map[string]*list.Element
	spill        map[string]string
	checkpointCh chan string
	wg           sync.WaitGroup
}

type Stats struct {
	CacheEntries     int
	SpillFiles       int
	InFlight         int
	CheckpointQueued int
}

func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{cfg: cfg, lru: list.New(), cache: make(map[string]*list.Element), spill: make(map[string]string)}
	if cfg.MaxInFlight > 0 {
		m.slots = make(chan struct{}, cfg.MaxInFlight)
	}
	if cfg.SpillDirectory != "" {
		if err := os.MkdirAll(cfg.SpillDirectory, 0o755); err != nil {
			return nil, fmt.Errorf("create spill directory: %w", err)
		}
	}
	if cfg.CheckpointPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CheckpointPath), 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
		m.checkpointCh = make(chan string, 1024)
		m.wg.Add(1)
		go m.checkpointLoop()
	}
	return m, nil
}

func (m *Manager) Close() error {
	if m.checkpointCh != nil {
		close(m.checkpointCh)
		m.wg.Wait()
	}
	return nil
}

// Acquire bounds concurrent in-flight fetches; Release frees the slot.
func (m *Manager) Acquire(ctx context.Context) error {
	if m.slots == nil {
		return nil
	}
	select {
	case m.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Release() {
	if m.slots == nil {
		return
	}
	select {
	case <-m.slots:
	default:
	}
}

type cacheEntry struct {
	url    string
	result engmodels.ParseResult
}

// StoreResult records the parsed page for key (the normalized URL),
// evicting the least-recently-used entry to disk once over capacity.
func (m *Manager) StoreResult(key string, result engmodels.ParseResult) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.cache[key]; ok {
		el.Value.(*cacheEntry).result = result
		m.lru.MoveToFront(el)
		return nil
	}
	el := m.lru.PushFront(&cacheEntry{url: key, result: result})
	m.cache[key] = el
	if m.cfg.CacheCapacity > 0 {
		for len(m.cache) > m.cfg.CacheCapacity {
			m.evictOldest()
		}
	}
	return nil
}

// GetResult returns the cached page for key, transparently reloading it
// from disk if it was spilled.
func (m *Manager) GetResult(key string) (engmodels.ParseResult, bool, error) {
	if key == "" {
		return engmodels.ParseResult{}, false, nil
	}
	m.mu.Lock()
	if el, ok := m.cache[key]; ok {
		m.lru.MoveToFront(el)
		result := el.Value.(*cacheEntry).result
		m.mu.Unlock()
		return result, true, nil
	}
	path, spilled := m.spill[key]
	m.mu.Unlock()
	if !spilled {
		return engmodels.ParseResult{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return engmodels.ParseResult{}, false, fmt.Errorf("read spill file: %w", err)
	}
	var result engmodels.ParseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return engmodels.ParseResult{}, false, fmt.Errorf("decode spill file: %w", err)
	}
	if err := m.StoreResult(key, result); err != nil {
		return engmodels.ParseResult{}, false, err
	}
	m.mu.Lock()
	delete(m.spill, key)
	m.mu.Unlock()
	return result, true, nil
}

// Checkpoint records that url has been durably processed, for crawl resume.
func (m *Manager) Checkpoint(u string) {
	if m.checkpointCh == nil || u == "" {
		return
	}
	select {
	case m.checkpointCh <- u:
	default:
		return
	}
}

func (m *Manager) Stats() Stats {
	var s Stats
	m.mu.Lock()
	s.CacheEntries = len(m.cache)
	s.SpillFiles = len(m.spill)
	m.mu.Unlock()
	if m.slots != nil {
		s.InFlight = len(m.slots)
	}
	if m.checkpointCh != nil {
		s.CheckpointQueued = len(m.checkpointCh)
	}
	return s
}

func (m *Manager) checkpointLoop() {
	defer m.wg.Done()
	interval := m.cfg.CheckpointInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	buf := make([]string, 0, 64)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		f, err := os.OpenFile(m.cfg.CheckpointPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		w := bufio.NewWriter(f)
		for _, e := range buf {
			_, _ = fmt.Fprintln(w, e)
		}
		_ = w.Flush()
		_ = f.Close()
		buf = buf[:0]
	}
	for {
		select {
		case e, ok := <-m.checkpointCh:
			if !ok {
				flush()
				return
			}
			buf = append(buf, e)
			if len(buf) >= 64 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (m *Manager) evictOldest() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*cacheEntry)
	delete(m.cache, entry.url)
	m.lru.Remove(back)
	if m.cfg.SpillDirectory == "" {
		return
	}
	filename := fmt.Sprintf("spill-%d-%s.spill.json", time.Now().UnixNano(), hashKey(entry.url))
	path := filepath.Join(m.cfg.SpillDirectory, filename)
	data, err := json.Marshal(entry.result)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return
	}
	m.spill[entry.url] = path
}

func hashKey(k string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k))
	return fmt.Sprintf("%x", h.Sum64())
}
