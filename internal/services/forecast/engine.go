package forecast

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"finboard/internal/models"
)

// State describes where the engine is in its compute lifecycle.
type State string

const (
	// StateIdle means no data has been loaded yet.
	StateIdle State = "idle"
	// StateReady means data is loaded and a run may start. A Ready
	// engine may also carry the result of a previous run.
	StateReady State = "ready"
	// StateComputing means a run is in flight.
	StateComputing State = "computing"
	// StateError means the last run failed; the engine stays usable
	// and a later run can succeed.
	StateError State = "error"
)

// ErrComputing is returned by Run when a run is already in flight.
var ErrComputing = errors.New("forecast: computation already running")

// ErrNoData is returned by Run before any transactions are loaded.
var ErrNoData = errors.New("forecast: no data loaded")

// Result is the outcome of a completed run.
type Result struct {
	Report     models.ForecastReport
	ComputedAt time.Time
}

// Engine serializes forecast computation over a replaceable data set.
// All methods are safe for concurrent use; at most one run executes at
// a time and concurrent callers get ErrComputing rather than queueing.
type Engine struct {
	mu      sync.Mutex
	state   State
	set     *models.TransactionSet
	result  *Result
	lastErr string

	// computeFn is swapped out in tests to exercise failure paths.
	computeFn func(*models.TransactionSet) models.ForecastReport
}

// NewEngine returns an idle engine with no data.
func NewEngine() *Engine {
	return &Engine{
		state: StateIdle,
		computeFn: func(set *models.TransactionSet) models.ForecastReport {
			return ForecastAll(BuildCategorySeries(set))
		},
	}
}

// SetData replaces the engine's data set and moves it to Ready. Called
// on every data reload; a previous result is kept until the next run
// replaces it. A replace during a run takes effect for the next run,
// not the one in flight.
func (e *Engine) SetData(set *models.TransactionSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = set
	if e.state != StateComputing {
		e.state = StateReady
	}
}

// State reports the current lifecycle state and, when in StateError,
// the message from the failed run.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastErr
}

// Result returns the latest completed run, or nil if none has finished.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Run executes a full forecast over the current data set and stores the
// result. It returns ErrComputing if another run is in flight and
// ErrNoData if SetData has never been called. A panic inside the
// computation is recovered into StateError so a bad data set cannot
// take the server down.
func (e *Engine) Run() (*Result, error) {
	e.mu.Lock()
	if e.state == StateComputing {
		e.mu.Unlock()
		return nil, ErrComputing
	}
	if e.set == nil {
		e.mu.Unlock()
		return nil, ErrNoData
	}
	set := e.set
	e.state = StateComputing
	e.mu.Unlock()

	result, err := e.compute(set)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateError
		e.lastErr = err.Error()
		return nil, err
	}
	e.state = StateReady
	e.lastErr = ""
	e.result = result
	return result, nil
}

func (e *Engine) compute(set *models.TransactionSet) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("forecast: computation panicked: %v", r)
		}
	}()

	report := e.computeFn(set)
	return &Result{Report: report, ComputedAt: time.Now()}, nil
}
