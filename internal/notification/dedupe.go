package notification

import (
	"sync"
	"time"
)

// Dedupe is a bounded, time-windowed set of recently seen delivery ids.
// Entries expire after the window and the oldest entry is evicted when the
// capacity is reached, so memory stays bounded across long process lifetimes.
// Not persisted; a restart during redelivery can repeat a notification.
type Dedupe struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	seen     map[string]time.Time
	now      func() time.Time
}

// NewDedupe creates a dedupe set holding at most capacity ids for at most
// the given window.
func NewDedupe(capacity int, window time.Duration) *Dedupe {
	return &Dedupe{
		capacity: capacity,
		window:   window,
		seen:     make(map[string]time.Time, capacity),
		now:      time.Now,
	}
}

// Seen records the id and reports whether it was already present within the
// window.
func (d *Dedupe) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-d.window)
	for key, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, key)
		}
	}

	if at, ok := d.seen[id]; ok && !at.Before(cutoff) {
		return true
	}

	if len(d.seen) >= d.capacity {
		var oldestKey string
		var oldestAt time.Time
		for key, at := range d.seen {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey, oldestAt = key, at
			}
		}
		delete(d.seen, oldestKey)
	}

	d.seen[id] = now
	return false
}
