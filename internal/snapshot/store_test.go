package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

func TestStoreReplace(t *testing.T) {
	store := NewStore()

	if store.Current() != nil {
		t.Fatal("expected nil snapshot before first import")
	}

	first := &Snapshot{
		ImportID:   "import-1",
		Source:     "upload",
		ImportedAt: time.Now(),
		RowCount:   2,
		Rules:      []*pipeline.RuleAggregate{{ID: "imported-1", RuleName: "Mass Export"}},
	}
	store.Replace(first)

	got := store.Current()
	if got == nil || got.ImportID != "import-1" {
		t.Fatalf("Current() = %v, want import-1", got)
	}

	second := &Snapshot{ImportID: "import-2", RowCount: 1}
	store.Replace(second)

	got = store.Current()
	if got.ImportID != "import-2" {
		t.Errorf("Current().ImportID = %q, want import-2", got.ImportID)
	}
	if len(got.Rules) != 0 {
		t.Errorf("replacement should not merge rules, got %d", len(got.Rules))
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Replace(&Snapshot{ImportID: "x"})
		}()
		go func() {
			defer wg.Done()
			store.Current()
		}()
	}
	wg.Wait()

	if store.Current() == nil {
		t.Error("expected a snapshot after concurrent replaces")
	}
}
