package services

import (
	"fmt"
	"route-optimization-service/internal/domain"
	"slices"
	"strings"
	"sync"
)

// OrderingStore holds the working stop order of one editing session.
//
// The order is changed only through Reorder and ReplaceOrdering (plus
// Remove/Append, which mirror template deletions and additions made
// elsewhere). Every successful mutation bumps the version and calls the
// change hook so derived data can be recomputed.
//
// The store is safe for concurrent use.
type OrderingStore struct {
	mu          sync.RWMutex
	stops       []domain.Stop
	version     uint64
	initialized bool
	onChange    func(version uint64)
}

func NewOrderingStore() *OrderingStore {
	return &OrderingStore{}
}

// OnChange registers fn to run after each successful mutation.
// fn runs outside the store lock and may read the store.
func (s *OrderingStore) OnChange(fn func(version uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Initialize seeds the ordering, preserving input order. It may be called once.
func (s *OrderingStore) Initialize(stops []domain.Stop) error {
	const op = "initialize ordering"

	seen := make(map[string]struct{}, len(stops))
	for i, st := range stops {
		if strings.TrimSpace(st.ID) == "" {
			return domain.NewValidationError(op, fmt.Sprintf("stop at index %d has an empty id", i), nil)
		}
		if _, ok := seen[st.ID]; ok {
			return domain.NewValidationError(op, fmt.Sprintf("duplicate stop id %q", st.ID), nil)
		}
		seen[st.ID] = struct{}{}
	}

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return domain.NewValidationError(op, "ordering already initialized", nil)
	}
	s.stops = slices.Clone(stops)
	s.initialized = true
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return nil
}

// Ordering returns a copy of the current order.
func (s *OrderingStore) Ordering() []domain.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stops)
}

// Snapshot returns a copy of the current order together with its version.
func (s *OrderingStore) Snapshot() ([]domain.Stop, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stops), s.version
}

func (s *OrderingStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *OrderingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stops)
}

// IDs returns the current stop ids in route order.
func (s *OrderingStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StopIDs(s.stops)
}

// Reorder moves the stop at from to index to, shifting the stops in between.
// It reports whether the ordering changed; from == to is a no-op.
// Indices outside [0, Len()) are a programming error and panic.
func (s *OrderingStore) Reorder(from, to int) bool {
	s.mu.Lock()
	if n := len(s.stops); from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		panic(fmt.Sprintf("ordering store: reorder(%d, %d) out of range for %d stops", from, to, n))
	}
	if from == to {
		s.mu.Unlock()
		return false
	}
	moveLocked(s.stops, from, to)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return true
}

// tryReorder is Reorder for untrusted indices: invalid ones report ok == false.
func (s *OrderingStore) tryReorder(from, to int) (moved, ok bool) {
	s.mu.Lock()
	if n := len(s.stops); from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return false, false
	}
	if from == to {
		s.mu.Unlock()
		return false, true
	}
	moveLocked(s.stops, from, to)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return true, true
}

// reorderByID moves sourceID to the position currently held by destinationID.
// Unknown ids and self-drops leave the ordering untouched.
func (s *OrderingStore) reorderByID(sourceID, destinationID string) bool {
	s.mu.Lock()
	from := indexOf(s.stops, sourceID)
	to := indexOf(s.stops, destinationID)
	if from < 0 || to < 0 || from == to {
		s.mu.Unlock()
		return false
	}
	moveLocked(s.stops, from, to)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return true
}

// ReplaceOrdering swaps in next when it is a permutation of the current stop-id
// set. Otherwise it returns a ValidationError and the ordering is unchanged.
// Stop records are taken from the store, not from next.
func (s *OrderingStore) ReplaceOrdering(next []domain.Stop) error {
	_, err := s.replace(next, nil)
	return err
}

// replace validates next against the current set. When requested is non-nil it
// is the id set the caller based next on; a rejected replacement is reported
// as stale if that set no longer matches the store. A next that is a
// permutation of the current set is applied either way.
func (s *OrderingStore) replace(next []domain.Stop, requested []string) ([]domain.Stop, error) {
	const op = "replace ordering"

	nextIDs := domain.StopIDs(next)

	s.mu.Lock()
	currentIDs := domain.StopIDs(s.stops)

	if !domain.SameIDSet(nextIDs, currentIDs) {
		s.mu.Unlock()
		if requested != nil && !domain.SameIDSet(requested, currentIDs) {
			return nil, domain.NewValidationError(op, "stops changed while the optimization was running", domain.ErrStaleResult)
		}
		return nil, domain.NewValidationError(op, "proposed ordering is not a permutation of the current stops", nil)
	}

	if slices.Equal(nextIDs, currentIDs) {
		applied := slices.Clone(s.stops)
		s.mu.Unlock()
		return applied, nil
	}

	byID := make(map[string]domain.Stop, len(s.stops))
	for _, st := range s.stops {
		byID[st.ID] = st
	}
	reordered := make([]domain.Stop, 0, len(nextIDs))
	for _, id := range nextIDs {
		reordered = append(reordered, byID[id])
	}
	s.stops = reordered
	applied := slices.Clone(reordered)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return applied, nil
}

// Remove drops a stop deleted outside this session. It reports whether the id was present.
func (s *OrderingStore) Remove(id string) bool {
	s.mu.Lock()
	idx := indexOf(s.stops, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.stops = slices.Delete(s.stops, idx, idx+1)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return true
}

// Append adds a stop created outside this session to the end of the route.
func (s *OrderingStore) Append(stop domain.Stop) error {
	const op = "append stop"

	if strings.TrimSpace(stop.ID) == "" {
		return domain.NewValidationError(op, "stop id is empty", nil)
	}

	s.mu.Lock()
	if indexOf(s.stops, stop.ID) >= 0 {
		s.mu.Unlock()
		return domain.NewValidationError(op, fmt.Sprintf("stop %q already in ordering", stop.ID), nil)
	}
	s.stops = append(s.stops, stop)
	version, hook := s.bumpLocked()
	s.mu.Unlock()

	notify(hook, version)
	return nil
}

func (s *OrderingStore) bumpLocked() (uint64, func(uint64)) {
	s.version++
	return s.version, s.onChange
}

func notify(hook func(uint64), version uint64) {
	if hook != nil {
		hook(version)
	}
}

func indexOf(stops []domain.Stop, id string) int {
	return slices.IndexFunc(stops, func(s domain.Stop) bool { return s.ID == id })
}

// moveLocked removes stops[from] and reinserts it at to, in place.
func moveLocked(stops []domain.Stop, from, to int) {
	moved := stops[from]
	if from < to {
		copy(stops[from:to], stops[from+1:to+1])
	} else {
		copy(stops[to+1:from+1], stops[to:from])
	}
	stops[to] = moved
}
