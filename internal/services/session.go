package services

import (
	"context"
	"fmt"
	"log"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/ports"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one route-editing view: an ordering store plus the components
// that read and mutate it. Nothing is shared between sessions.
type Session struct {
	ID        string
	RouteID   string
	CreatedAt time.Time

	Store     *OrderingStore
	Pipeline  *RoutePipeline
	Reorder   *ReorderController
	Optimizer *OptimizerGateway

	ctx    context.Context
	cancel context.CancelFunc
}

// View returns the latest computed view, computing one synchronously if the
// pipeline has not delivered yet or is behind the store.
func (s *Session) View(ctx context.Context) (RouteView, error) {
	if v, ok := s.Pipeline.Latest(); ok && v.Version == s.Store.Version() {
		return v, nil
	}
	return s.Pipeline.Refresh(ctx)
}

// Optimize runs the gateway with a context that also ends when the session closes.
func (s *Session) Optimize(ctx context.Context, c domain.Constraints) (*OptimizationOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	return s.Optimizer.Optimize(ctx, c)
}

// Close tears the session down; in-flight work is cancelled and ignored.
func (s *Session) Close() {
	s.cancel()
	s.Pipeline.Close()
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Geocoder        ports.Geocoder
	Travel          ports.TravelSegmentProvider
	Optimizer       ports.OptimizationService
	Repo            ports.StopRepository
	Calculator      *MetricsCalculator
	TravelTimeout   time.Duration
	OptimizeTimeout time.Duration
	// Publish receives each recomputed view of a session.
	Publish func(sessionID string, view RouteView)
}

// SessionManager keeps editing sessions in memory.
type SessionManager struct {
	deps     SessionDeps
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session seeded from a saved route.
func (m *SessionManager) Open(ctx context.Context, routeID string) (*Session, error) {
	if m.deps.Repo == nil {
		return nil, fmt.Errorf("open session: no stop repository configured")
	}

	stops, err := m.deps.Repo.ListStops(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("open session: list stops for route %q: %w", routeID, err)
	}

	return m.OpenWithStops(routeID, stops)
}

// OpenWithStops starts a session seeded from stops, in the given order.
// routeID may be empty for sessions that will not be committed.
func (m *SessionManager) OpenWithStops(routeID string, stops []domain.Stop) (*Session, error) {
	id := uuid.NewString()

	store := NewOrderingStore()
	pipeline := NewRoutePipeline(store, PipelineConfig{
		Geocoder:      m.deps.Geocoder,
		Travel:        m.deps.Travel,
		Calculator:    m.deps.Calculator,
		TravelTimeout: m.deps.TravelTimeout,
		Publish: func(v RouteView) {
			if m.deps.Publish != nil {
				m.deps.Publish(id, v)
			}
		},
	})
	store.OnChange(func(uint64) { pipeline.Trigger() })

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:        id,
		RouteID:   routeID,
		CreatedAt: time.Now(),
		Store:     store,
		Pipeline:  pipeline,
		Reorder:   NewReorderController(store),
		Optimizer: NewOptimizerGateway(store, m.deps.Optimizer, m.deps.OptimizeTimeout),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := store.Initialize(stops); err != nil {
		session.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	log.Printf("[SESSION] Created route session: id=%s route=%s stops=%d", id, routeID, len(stops))
	return session, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Commit hands the session's current ordering to the stop repository.
func (m *SessionManager) Commit(ctx context.Context, id string) ([]string, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if s.RouteID == "" {
		return nil, domain.NewValidationError("commit ordering", "session is not linked to a saved route", nil)
	}
	if m.deps.Repo == nil {
		return nil, fmt.Errorf("commit ordering: no stop repository configured")
	}

	ids := s.Store.IDs()
	if err := m.deps.Repo.SaveOrdering(ctx, s.RouteID, ids); err != nil {
		return nil, fmt.Errorf("commit ordering: route %q: %w", s.RouteID, err)
	}

	log.Printf("[SESSION] Committed ordering: id=%s route=%s stops=%d", id, s.RouteID, len(ids))
	return ids, nil
}

// Close ends one session.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	s.Close()
	log.Printf("[SESSION] Deleted route session: id=%s", id)
	return nil
}

// CloseAll ends every session, e.g. at shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
