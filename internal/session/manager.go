package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/coaching"
	"tone-coach-service/internal/events"
)

var (
	// ErrVoiceConfigMissing is returned when a live session is started without the
	// voice transport credentials.
	ErrVoiceConfigMissing = errors.New("voice public key and assistant id are required")
	ErrSessionNotFound    = errors.New("session not found")
)

// VoiceConfig identifies the external voice transport.
type VoiceConfig struct {
	PublicKey   string `json:"publicKey"`
	AssistantID string `json:"assistantId"`
}

// Validate checks that both transport fields are set.
func (v VoiceConfig) Validate() error {
	if v.PublicKey == "" || v.AssistantID == "" {
		return ErrVoiceConfigMissing
	}
	return nil
}

// Manager owns all sessions of the process.
type Manager struct {
	analyzer  analysis.Analyzer
	publisher *events.Publisher
	voice     VoiceConfig
	opts      Options
	clock     coaching.Clock

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(analyzer analysis.Analyzer, publisher *events.Publisher, voice VoiceConfig, opts Options) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = coaching.SystemClock{}
	}
	return &Manager{
		analyzer:  analyzer,
		publisher: publisher,
		voice:     voice,
		opts:      opts,
		clock:     clock,
		sessions:  make(map[string]*Session),
	}
}

// Voice returns the voice transport configuration.
func (m *Manager) Voice() VoiceConfig {
	return m.voice
}

// Start creates a new live session. It fails when the voice transport is not
// configured.
func (m *Manager) Start() (*Session, error) {
	if err := m.voice.Validate(); err != nil {
		return nil, err
	}
	m.Sweep()

	s := New(uuid.New().String(), m.analyzer, m.publisher, m.opts)
	if err := s.Begin(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End ends a session and returns its recap. The session stays registered for the
// retention period so its log and recap remain readable.
func (m *Manager) End(ctx context.Context, id string) (string, error) {
	s, err := m.Get(id)
	if err != nil {
		return "", err
	}
	summary, _, err := s.End(ctx)
	return summary, err
}

// Remove discards a session without a recap.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// Sweep evicts sessions that ended at least Retention ago and returns how many were
// evicted.
func (m *Manager) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		if endedAt, ok := s.EndedAt(); ok && now.Sub(endedAt) >= m.opts.Retention {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		log.Debug().Str("sessionId", id).Msg("Evicted ended session")
	}
	return len(evicted)
}

// Run sweeps ended sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session without generating recaps.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Info().Int("sessions", len(sessions)).Msg("Session manager closed")
}
