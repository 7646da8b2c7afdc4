package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/storage"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is the single source of truth for chat sessions and the active
// session pointer. Mutations stay in memory until Persist is called.
type Store struct {
	mu       sync.RWMutex
	backend  storage.Backend
	key      string
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	sessions []chat.Session
	activeID string
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id allocation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore returns an empty store persisting under key in backend.
func NewStore(backend storage.Backend, key string, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     key,
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll replaces the in-memory list with what the backend holds. Missing or
// corrupt data loads as an empty list. The last loaded session becomes active.
func (s *Store) LoadAll(ctx context.Context) []chat.Session {
	data, err := s.backend.Load(ctx, s.key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to read sessions, starting empty", zap.String("key", s.key), zap.Error(err))
		data = nil
	}

	sessions, dropped := chat.DecodeSessions(data)
	if dropped > 0 {
		s.log.Warn("dropped invalid persisted records", zap.String("key", s.key), zap.Int("dropped", dropped))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = sessions
	s.activeID = ""
	if len(sessions) > 0 {
		s.activeID = sessions[len(sessions)-1].ID
	}
	return cloneAll(s.sessions)
}

// EnsureNonEmpty synthesizes and persists a default session when none exist,
// and makes sure the active pointer refers to a present session. The returned
// error only reports a failed write; the in-memory state is usable regardless.
func (s *Store) EnsureNonEmpty(ctx context.Context) error {
	s.mu.Lock()
	created := false
	if len(s.sessions) == 0 {
		s.sessions = append(s.sessions, s.newSessionLocked(chat.DefaultTitle))
		created = true
	}
	if s.indexLocked(s.activeID) < 0 {
		s.activeID = s.sessions[len(s.sessions)-1].ID
	}
	s.mu.Unlock()

	if !created {
		return nil
	}
	return s.Persist(ctx)
}

// SetActive points the store at id. Unknown ids leave the pointer unchanged.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// ActiveID returns the active session id, or "" before EnsureNonEmpty.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active session.
func (s *Store) Active() (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return chat.Session{}, false
	}
	return s.sessions[idx].Clone(), true
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return chat.Session{}, ErrSessionNotFound
	}
	return s.sessions[idx].Clone(), nil
}

// Sessions returns copies of all sessions in creation order.
func (s *Store) Sessions() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.sessions)
}

// CreateSession appends a new session at the end of the list. It neither
// persists nor activates it.
func (s *Store) CreateSession(title string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.newSessionLocked(title)
	s.sessions = append(s.sessions, session)
	return session.Clone()
}

// AppendMessage adds message to the end of the session transcript.
func (s *Store) AppendMessage(sessionID string, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return ErrSessionNotFound
	}
	s.sessions[idx].Messages = append(s.sessions[idx].Messages, message)
	return nil
}

// RenameIfDefaultTitle sets the session title from candidate, truncated per
// chat.TitleFromPrompt, but only while the title is still the default.
func (s *Store) RenameIfDefaultTitle(sessionID, candidate string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 || !s.sessions[idx].HasDefaultTitle() {
		return "", false
	}
	title := chat.TitleFromPrompt(candidate)
	s.sessions[idx].Title = title
	return title, true
}

// Persist writes the full session list to the backend.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	data, err := chat.EncodeSessions(s.sessions)
	count := len(s.sessions)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.log.Error("failed to persist sessions", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("persist sessions: %w", err)
	}
	s.log.Debug("persisted sessions", zap.Int("count", count))
	return nil
}

func (s *Store) newSessionLocked(title string) chat.Session {
	if title == "" {
		title = chat.DefaultTitle
	}
	return chat.Session{
		ID:        s.newID(),
		Title:     title,
		Messages:  make([]chat.Message, 0, 16),
		CreatedAt: s.now().UTC(),
	}
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(sessions []chat.Session) []chat.Session {
	out := make([]chat.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}
