package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All history is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryBackend struct {
	// history maps dependency name to records ordered by TakenAt.
	history map[string][]*Record

	// mu protects access to history.
	mu sync.RWMutex

	// maxPerName caps the history kept for a single dependency.
	maxPerName int
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// MaxPerName is the maximum number of records kept per dependency.
	// Oldest records are evicted when this limit is reached.
	// Default: 1,000
	MaxPerName int
}

// NewMemoryBackend creates a new in-memory snapshot backend with default settings.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{
		MaxPerName: 1000,
	})
}

// NewMemoryBackendWithConfig creates a new in-memory backend with custom configuration.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.MaxPerName <= 0 {
		cfg.MaxPerName = 1000
	}

	return &MemoryBackend{
		history:    make(map[string][]*Record),
		maxPerName: cfg.MaxPerName,
	}
}

// Save persists a batch of records.
func (m *MemoryBackend) Save(ctx context.Context, records []*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		if rec == nil {
			return fmt.Errorf("record cannot be nil")
		}
		if rec.Name == "" {
			return fmt.Errorf("record name cannot be empty")
		}

		cp := *rec
		if cp.TakenAt.IsZero() {
			cp.TakenAt = time.Now().UTC()
		}

		hist := append(m.history[rec.Name], &cp)
		if len(hist) > m.maxPerName {
			hist = hist[len(hist)-m.maxPerName:]
		}
		m.history[rec.Name] = hist
	}

	return nil
}

// Latest returns the most recent record for a dependency, or nil when
// none exists.
func (m *MemoryBackend) Latest(ctx context.Context, name string) (*Record, error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hist := m.history[name]
	if len(hist) == 0 {
		return nil, nil
	}

	cp := *hist[len(hist)-1]
	return &cp, nil
}

// List returns the most recent record for every dependency, ordered by name.
func (m *MemoryBackend) List(ctx context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Record, 0, len(m.history))
	for _, hist := range m.history {
		if len(hist) == 0 {
			continue
		}
		cp := *hist[len(hist)-1]
		records = append(records, &cp)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	return records, nil
}

// Prune removes records taken before the cutoff.
func (m *MemoryBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for name, hist := range m.history {
		kept := hist[:0]
		for _, rec := range hist {
			if rec.TakenAt.Before(olderThan) {
				deleted++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(m.history, name)
		} else {
			m.history[name] = kept
		}
	}

	return deleted, nil
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Size returns the total number of stored records.
// This is useful for monitoring and testing.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, hist := range m.history {
		total += len(hist)
	}
	return total
}
