package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
)

func report(id string, started time.Time, status string) *domain.RunReport {
	r := &domain.RunReport{
		RunID:     id,
		BaseURL:   "https://li.quest/v1",
		StartedAt: started,
		Results:   []domain.ScenarioResult{{ID: "TC_LIFI-API_001", Status: status}},
	}
	r.Tally()
	return r
}

func TestBoltStoreReturnsRunsNewestFirst(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "runs.db"), normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	last, err := store.LastRun()
	if err != nil || last != nil {
		t.Fatalf("expected empty store, got %v err=%v", last, err)
	}

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		if err := store.SaveRun(report(id, base.Add(time.Duration(i)*time.Minute), domain.StatusPassed)); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := store.Runs(0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{"c", "a", "b"} {
		if runs[i].RunID != want {
			t.Fatalf("runs[%d] = %s, want %s", i, runs[i].RunID, want)
		}
	}
	if runs[0].Totals.Passed != 1 || runs[0].BaseURL != "https://li.quest/v1" {
		t.Fatalf("report did not round-trip: %+v", runs[0])
	}

	limited, err := store.Runs(2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 runs with limit, got %d err=%v", len(limited), err)
	}

	last, err = store.LastRun()
	if err != nil || last == nil || last.RunID != "c" {
		t.Fatalf("LastRun = %+v err=%v", last, err)
	}
}

func TestBoltStoreExpiresRuns(t *testing.T) {
	opts := Options{RunTTL: time.Hour, CleanupInterval: time.Minute}
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "nested", "runs.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }

	if err := store.SaveRun(report("old", clock, domain.StatusFailed)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	runs, err := store.Runs(0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected expired run to be hidden, got %d", len(runs))
	}

	err = store.db.View(func(tx *bolt.Tx) error {
		if k, _ := tx.Bucket([]byte(runBucket)).Cursor().First(); k != nil {
			t.Fatalf("expected cleanup to delete %q", k)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestBoltStoreRejectsAnonymousRun(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "runs.db"), normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	if err := store.SaveRun(&domain.RunReport{}); err == nil {
		t.Fatalf("expected error for report without run id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveRun(report("x", time.Now(), domain.StatusPassed)); err != nil {
		t.Fatalf("noop store SaveRun: %v", err)
	}
	if last, err := store.LastRun(); err != nil || last != nil {
		t.Fatalf("noop store LastRun = %v err=%v", last, err)
	}
}

func TestNewStoreValidatesType(t *testing.T) {
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for empty bbolt path")
	}
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
