package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/assign"
	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/service"
	"github.com/wricardo/warehouse-sim/sim/state"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// ObserverFactory builds the observer attached to a new session's engine
type ObserverFactory func(sessionID string) engine.Observer

// ManagerOptions configures the simulations a manager creates
type ManagerOptions struct {
	Settings        config.Settings
	ObserverFactory ObserverFactory
	Logger          logrus.FieldLogger
}

// Manager handles simulation session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	options  ManagerOptions
	logger   logrus.FieldLogger
	mu       sync.RWMutex
}

// NewManager creates a new session manager. Zero settings use the defaults.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Settings == (config.Settings{}) {
		opts.Settings = config.DefaultSettings()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		sessions: make(map[string]*service.Session),
		options:  opts,
		logger:   logger,
	}
}

// Create creates a new session with the given ID, loading grid into it.
// An empty ID is replaced by a generated one.
func (m *Manager) Create(id string, grid *config.GridConfig) (*service.Session, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/?#") {
		return nil, ErrInvalidSessionID
	}

	cells, err := grid.Cells()
	if err != nil {
		return nil, fmt.Errorf("failed to parse grid %s: %w", grid.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	session := m.newSession(id)
	session.Engine.Initialize(grid.ID, grid.Name, cells)

	m.sessions[strings.ToLower(id)] = session
	m.logger.WithFields(logrus.Fields{"session": id, "grid": grid.ID}).Info("session created")

	return copySession(session), nil
}

// newSession wires a store, assigner and engine for one simulation
func (m *Manager) newSession(id string) *service.Session {
	log := m.logger.WithField("session", id)

	store := state.New(m.options.Settings.StateDefaults())

	opts := m.options.Settings.EngineOptions()
	opts.Logger = log
	if m.options.ObserverFactory != nil {
		opts.Observer = m.options.ObserverFactory(id)
	}

	now := time.Now()
	return &service.Session{
		ID:             id,
		Engine:         engine.New(store, assign.NewService(store, log), opts),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

// copySession detaches the caller from fields guarded by m.mu
func copySession(session *service.Session) *service.Session {
	out := *session
	return &out
}

// Get returns a copy of the session with the given ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, grid *config.GridConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, grid)
	}

	return nil, err
}

// List returns copies of all active sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, copySession(session))
	}
	sortByCreation(result)

	return result
}

// Delete stops a session's engine and removes it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Engine.Close()
	delete(m.sessions, lowerID)
	m.logger.WithField("session", session.ID).Info("session deleted")

	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions removes idle sessions that haven't been accessed in
// the given duration. Running simulations are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) && !session.Engine.Running() {
			session.Engine.Close()
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithField("removed", removed).Info("expired sessions cleaned up")
	}
	return removed
}

// CloseAll stops every engine, keeping the sessions listed
func (m *Manager) CloseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		session.Engine.Close()
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID not yet in use
func (m *Manager) generateSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists must be called with m.mu held
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

func sortByCreation(sessions []*service.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
