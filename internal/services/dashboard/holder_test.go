package dashboard

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"finboard/internal/models"
	"finboard/internal/services/storage"
	"finboard/internal/services/store"
)

func newTestHolder(t *testing.T) (*Holder, *store.Store) {
	t.Helper()
	files, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	records := store.New(files)
	holder := New(records, zerolog.Nop())
	t.Cleanup(holder.Close)
	return holder, records
}

func waitForGeneration(t *testing.T, holder *Holder, userID string, want uint64) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := holder.Snapshot(userID)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if snapshot.Generation >= want {
			return snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("generation %d never reached", want)
	return Snapshot{}
}

func TestSnapshotFirstAccessLoadsStore(t *testing.T) {
	holder, records := newTestHolder(t)
	err := records.ReplaceAll("u1", []models.RawRecord{
		{Date: "2024-03-01", Category: "Groceries", Amount: "100"},
		{Date: "2024-03-02", Category: "Income", Amount: "3000"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	snapshot, err := holder.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.Generation != 1 {
		t.Errorf("Generation = %d, want 1", snapshot.Generation)
	}
	if snapshot.Set.Len() != 2 {
		t.Errorf("Len = %d, want 2", snapshot.Set.Len())
	}
}

func TestSnapshotTracksReplacements(t *testing.T) {
	holder, records := newTestHolder(t)
	first, err := holder.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if first.Set.Len() != 0 {
		t.Fatalf("fresh user Len = %d, want 0", first.Set.Len())
	}

	err = records.ReplaceAll("u1", []models.RawRecord{
		{Date: "2024-03-01", Category: "Rent", Amount: "900"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	second := waitForGeneration(t, holder, "u1", 2)
	if second.Set.Len() != 1 {
		t.Errorf("Len = %d, want 1", second.Set.Len())
	}
	// The first snapshot is immutable; the replacement produced a new set.
	if first.Set.Len() != 0 {
		t.Error("old snapshot mutated by replacement")
	}
}

func TestEngineSeesReplacedData(t *testing.T) {
	holder, records := newTestHolder(t)
	engine, err := holder.Engine("u1")
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if _, err := engine.Run(); err != nil {
		t.Fatalf("Run on empty data: %v", err)
	}

	err = records.ReplaceAll("u1", []models.RawRecord{
		{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	waitForGeneration(t, holder, "u1", 2)

	result, err := engine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Report.Rows) != 1 || result.Report.Rows[0].Category != "Groceries" {
		t.Errorf("report = %+v, want a Groceries row", result.Report)
	}
}

func TestUsersGetIndependentState(t *testing.T) {
	holder, records := newTestHolder(t)
	err := records.ReplaceAll("u1", []models.RawRecord{
		{Date: "2024-03-01", Category: "Groceries", Amount: "100"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	u1, err := holder.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot u1: %v", err)
	}
	u2, err := holder.Snapshot("u2")
	if err != nil {
		t.Fatalf("Snapshot u2: %v", err)
	}
	if u1.Set.Len() != 1 || u2.Set.Len() != 0 {
		t.Errorf("u1 = %d, u2 = %d; want 1 and 0", u1.Set.Len(), u2.Set.Len())
	}

	e1, _ := holder.Engine("u1")
	e2, _ := holder.Engine("u2")
	if e1 == e2 {
		t.Error("users share a forecast engine")
	}
}
