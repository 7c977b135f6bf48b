package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SnapshotName is the fixed name cart snapshots are stored under.
const SnapshotName = "cart"

var (
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	ErrEmptyKey         = errors.New("snapshot key is empty")
)

// SnapshotKey returns the storage key of the cart snapshot for one session.
func SnapshotKey(sessionID string) string {
	return SnapshotName + ":" + sessionID
}

// SnapshotStore is durable storage for serialized cart snapshots. Entries
// expire after the store's TTL; Load of a missing or expired key returns
// ErrSnapshotNotFound.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySnapshotStore keeps snapshots in process memory. Used for local
// development and tests; contents do not survive a restart.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemorySnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || (s.ttl > 0 && !s.now().Before(entry.expiresAt)) {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), entry.payload...), nil
}

func (s *MemorySnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshotStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// PurgeExpired drops expired entries and returns how many were removed.
func (s *MemorySnapshotStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	now := s.now()
	var purged int64

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}
