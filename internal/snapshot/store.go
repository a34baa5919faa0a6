// Package snapshot holds the current alarm aggregate snapshot. Each
// import replaces the snapshot wholesale; there is no merging across
// imports.
package snapshot

import (
	"sync"
	"time"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
	"github.com/mervekesknn/db-protection-insight/internal/trend"
)

// Snapshot is the result of one import: the rule aggregates, the
// analyzed trend report, and provenance.
type Snapshot struct {
	ImportID   string                    `json:"importId"`
	Source     string                    `json:"source"`
	ImportedAt time.Time                 `json:"importedAt"`
	RowCount   int                       `json:"rowCount"`
	Rules      []*pipeline.RuleAggregate `json:"rules"`
	Report     *trend.Report             `json:"-"`
}

// Store is the in-memory snapshot holder. Reads see either the previous
// snapshot or the new one, never a mix.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Replace installs snap as the current snapshot.
func (s *Store) Replace(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
}

// Current returns the current snapshot, or nil before the first import.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
