package forecast

import (
	"errors"
	"sync"
	"testing"

	"finboard/internal/models"
)

func TestEngineLifecycle(t *testing.T) {
	engine := NewEngine()

	state, _ := engine.State()
	if state != StateIdle {
		t.Fatalf("initial state = %s, want %s", state, StateIdle)
	}
	if _, err := engine.Run(); !errors.Is(err, ErrNoData) {
		t.Fatalf("Run before SetData: err = %v, want ErrNoData", err)
	}

	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
	))
	state, _ = engine.State()
	if state != StateReady {
		t.Fatalf("state after SetData = %s, want %s", state, StateReady)
	}

	result, err := engine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Report.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(result.Report.Rows))
	}
	if result.ComputedAt.IsZero() {
		t.Error("ComputedAt not set")
	}

	state, _ = engine.State()
	if state != StateReady {
		t.Errorf("state after Run = %s, want %s", state, StateReady)
	}
	if engine.Result() != result {
		t.Error("Result does not return the latest run")
	}
}

func TestEngineConcurrentRuns(t *testing.T) {
	engine := NewEngine()
	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
	))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Run()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrComputing):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded == 0 {
		t.Error("no run succeeded")
	}
	if succeeded+rejected != workers {
		t.Errorf("succeeded(%d)+rejected(%d) != %d", succeeded, rejected, workers)
	}
	state, _ := engine.State()
	if state != StateReady {
		t.Errorf("final state = %s, want %s", state, StateReady)
	}
}

func TestEngineErrorStateIsRecoverable(t *testing.T) {
	engine := NewEngine()
	engine.computeFn = func(*models.TransactionSet) models.ForecastReport {
		panic("bad data set")
	}
	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
	))

	if _, err := engine.Run(); err == nil {
		t.Fatal("Run with panicking computation: want error")
	}
	state, msg := engine.State()
	if state != StateError {
		t.Fatalf("state = %s, want %s", state, StateError)
	}
	if msg == "" {
		t.Error("error state carries no message")
	}

	// A later run with a healthy computation recovers the engine.
	engine.computeFn = func(set *models.TransactionSet) models.ForecastReport {
		return ForecastAll(BuildCategorySeries(set))
	}
	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
	))
	if _, err := engine.Run(); err != nil {
		t.Fatalf("Run after reload: %v", err)
	}
	state, msg = engine.State()
	if state != StateReady || msg != "" {
		t.Errorf("state = %s %q, want %s with empty message", state, msg, StateReady)
	}
}

func TestEngineSetDataDuringResultKeepsPreviousResult(t *testing.T) {
	engine := NewEngine()
	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
	))
	first, err := engine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	engine.SetData(makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Rent", Amount: "900"},
		models.RawRecord{Date: "2024-02-10", Category: "Rent", Amount: "900"},
	))
	if engine.Result() != first {
		t.Error("SetData must not discard the previous result")
	}

	second, err := engine.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Report.Rows[0].Category != "Rent" {
		t.Errorf("second run category = %s, want Rent", second.Report.Rows[0].Category)
	}
}
