package schedule

import (
	"strings"
	"sync"
	"time"
)

// DefaultTitleTTL bounds how long a resolved title is reused.
const DefaultTitleTTL = 15 * time.Minute

// TitleKey identifies one hidden event as seen from a room's calendar.
type TitleKey struct {
	Organizer string
	Start     int64
	End       int64
	Room      string
}

// NewTitleKey normalizes the organizer address and interval into a key.
func NewTitleKey(organizer string, start, end time.Time, room string) TitleKey {
	return TitleKey{
		Organizer: strings.ToLower(strings.TrimSpace(organizer)),
		Start:     start.UnixNano(),
		End:       end.UnixNano(),
		Room:      room,
	}
}

// TitleCache maps hidden events to their resolved display title. It is safe
// for concurrent use; one instance is shared by every aggregation pass.
type TitleCache struct {
	mu      sync.Mutex
	now     func() time.Time
	ttl     time.Duration
	entries map[TitleKey]titleEntry
}

type titleEntry struct {
	title     string
	createdAt time.Time
}

func NewTitleCache(ttl time.Duration, now func() time.Time) *TitleCache {
	if ttl <= 0 {
		ttl = DefaultTitleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TitleCache{
		now:     now,
		ttl:     ttl,
		entries: make(map[TitleKey]titleEntry),
	}
}

// Get returns the cached title. Entries whose age reached the TTL are
// misses even before Expire removes them.
func (c *TitleCache) Get(key TitleKey) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.expiredLocked(entry) {
		return "", false
	}
	return entry.title, true
}

func (c *TitleCache) Put(key TitleKey, title string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = titleEntry{title: title, createdAt: c.now()}
	c.mu.Unlock()
}

// Expire drops every stale entry and reports how many were removed.
func (c *TitleCache) Expire() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if c.expiredLocked(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len includes stale entries not yet expired.
func (c *TitleCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TitleCache) expiredLocked(entry titleEntry) bool {
	return c.now().Sub(entry.createdAt) >= c.ttl
}
