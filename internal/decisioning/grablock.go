package decisioning

import (
	"fmt"
	"sync"
)

// GrabLock provides per-media-item grab locking so the feed pipeline and
// auto-search cannot grab the same item concurrently.
type GrabLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewGrabLock creates a new GrabLock.
func NewGrabLock() *GrabLock {
	return &GrabLock{
		locks: make(map[string]struct{}),
	}
}

// Key returns the lock key for a media item.
func Key(mediaType MediaType, mediaID string) string {
	return fmt.Sprintf("%s:%s", mediaType, mediaID)
}

// SeasonKey returns the lock key for a whole season, shared by episode and
// season-pack grabs of the same season.
func SeasonKey(seriesID string, season int) string {
	return fmt.Sprintf("season:%s:%d", seriesID, season)
}

// TryAcquire attempts to acquire the lock for key. Returns false when it is
// already held.
func (g *GrabLock) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.locks[key]; held {
		return false
	}
	g.locks[key] = struct{}{}
	return true
}

// Release releases the lock for key.
func (g *GrabLock) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, key)
}
