// Package dashboard holds the normalized, ready-to-query snapshot of
// each user's transactions and keeps it current as uploads land.
package dashboard

import (
	"sync"

	"github.com/rs/zerolog"

	"finboard/internal/models"
	"finboard/internal/services/forecast"
	"finboard/internal/services/normalize"
	"finboard/internal/services/store"
)

// Snapshot is an immutable view of one user's normalized data.
// Generation increases on every replacement so a client can tell a
// stale response from a current one.
type Snapshot struct {
	Set        *models.TransactionSet
	Generation uint64
}

type userState struct {
	snapshot   Snapshot
	engine     *forecast.Engine
	cancelFeed func()
}

// Holder materializes store records into per-user snapshots. Reads are
// lock-striped per holder; replacements build the new set off-lock and
// swap it in whole, so a request never sees a half-updated view.
type Holder struct {
	records *store.Store
	log     zerolog.Logger

	mu    sync.RWMutex
	users map[string]*userState
}

// New creates a holder over the record store.
func New(records *store.Store, log zerolog.Logger) *Holder {
	return &Holder{
		records: records,
		log:     log.With().Str("component", "dashboard").Logger(),
		users:   make(map[string]*userState),
	}
}

// Snapshot returns the user's current normalized view, loading and
// subscribing on first access.
func (h *Holder) Snapshot(userID string) (Snapshot, error) {
	h.mu.RLock()
	if state, ok := h.users[userID]; ok {
		snapshot := state.snapshot
		h.mu.RUnlock()
		return snapshot, nil
	}
	h.mu.RUnlock()

	state, err := h.activate(userID)
	if err != nil {
		return Snapshot{}, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return state.snapshot, nil
}

// Engine returns the user's forecast engine, activating the user on
// first access.
func (h *Holder) Engine(userID string) (*forecast.Engine, error) {
	h.mu.RLock()
	if state, ok := h.users[userID]; ok {
		h.mu.RUnlock()
		return state.engine, nil
	}
	h.mu.RUnlock()

	state, err := h.activate(userID)
	if err != nil {
		return nil, err
	}
	return state.engine, nil
}

// activate loads the user's records, builds the first snapshot, and
// starts the feed goroutine that applies later replacements.
func (h *Holder) activate(userID string) (*userState, error) {
	records, err := h.records.Records(userID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.users[userID]; ok {
		return state, nil
	}

	updates, cancel := h.records.Subscribe(userID)
	// Subscribe seeds the channel with the current snapshot; prefer
	// it over the read above in case a replacement landed in between.
	select {
	case update := <-updates:
		records = update.Records
	default:
	}

	set := normalize.Records(records)
	engine := forecast.NewEngine()
	engine.SetData(set)
	state := &userState{
		snapshot:   Snapshot{Set: set, Generation: 1},
		engine:     engine,
		cancelFeed: cancel,
	}
	h.users[userID] = state
	go h.feed(userID, updates)

	h.log.Info().Str("user", userID).Int("transactions", set.Len()).Msg("snapshot loaded")
	return state, nil
}

// feed applies record replacements for one user until unsubscribed.
func (h *Holder) feed(userID string, updates <-chan store.Update) {
	for update := range updates {
		set := normalize.Records(update.Records)

		h.mu.Lock()
		state, ok := h.users[userID]
		if !ok {
			h.mu.Unlock()
			return
		}
		state.snapshot = Snapshot{Set: set, Generation: state.snapshot.Generation + 1}
		generation := state.snapshot.Generation
		state.engine.SetData(set)
		h.mu.Unlock()

		h.log.Info().Str("user", userID).Uint64("generation", generation).
			Int("transactions", set.Len()).Msg("snapshot replaced")
	}
}

// Close unsubscribes every active user. Snapshots stay readable but no
// longer track the store.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, state := range h.users {
		state.cancelFeed()
	}
}
