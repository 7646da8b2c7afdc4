package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	chatservice "github.com/astrachat/astra/internal/service/chat"
	"github.com/astrachat/astra/internal/service/mode"
	"github.com/astrachat/astra/internal/service/pipeline"
	"github.com/astrachat/astra/internal/service/render"
)

// ErrSessionIndex is returned when a sidebar position does not exist.
var ErrSessionIndex = errors.New("no session at that position")

// Surface draws frames. Implementations must not block for long; frames are
// delivered synchronously from the goroutine that caused them.
type Surface interface {
	Render(frame render.Frame)
}

// Options configures a Service.
type Options struct {
	TimeLayout string
	MetaLayout string
	Now        func() time.Time
	Logger     *zap.Logger
}

// Service composes the session store, mode selector, message pipeline and
// render projector behind the commands a rendering surface issues.
type Service struct {
	store      *chatservice.Store
	selector   *mode.Selector
	pipeline   *pipeline.Pipeline
	metaLayout string
	log        *zap.Logger

	mu       sync.RWMutex
	surfaces []Surface
}

// New wires the pipeline with the service as its listener.
func New(store *chatservice.Store, selector *mode.Selector, responder pipeline.Responder, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MetaLayout == "" {
		opts.MetaLayout = "Jan 2, 15:04"
	}

	s := &Service{
		store:      store,
		selector:   selector,
		metaLayout: opts.MetaLayout,
		log:        opts.Logger,
	}
	s.pipeline = pipeline.New(store, responder,
		pipeline.WithListener(s),
		pipeline.WithClock(opts.Now, opts.TimeLayout),
		pipeline.WithLogger(opts.Logger),
	)
	return s
}

// Attach registers a surface for future frames.
func (s *Service) Attach(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surfaces = append(s.surfaces, surface)
}

// Detach removes a previously attached surface.
func (s *Service) Detach(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.surfaces {
		if existing == surface {
			s.surfaces = append(s.surfaces[:i], s.surfaces[i+1:]...)
			return
		}
	}
}

// Start loads persisted sessions, guarantees one exists and renders the
// active session.
func (s *Service) Start(ctx context.Context) {
	loaded := s.store.LoadAll(ctx)
	if err := s.store.EnsureNonEmpty(ctx); err != nil {
		s.log.Warn("initial session not persisted", zap.Error(err))
	}
	s.log.Info("sessions loaded", zap.Int("count", len(loaded)), zap.String("active", s.store.ActiveID()))
	s.broadcast(s.Snapshot()...)
}

// Snapshot returns the frames that fully describe the current view.
func (s *Service) Snapshot() []render.Frame {
	frames := []render.Frame{
		s.sessionsFrame(),
		s.historyFrame(),
		{Kind: render.FrameMode, Mode: string(s.selector.CurrentMode())},
	}
	if view := render.ProjectPending(s.pipeline.Pending()); view != render.ViewNone {
		frames = append(frames, render.Frame{Kind: render.FramePending, Pending: view})
	}
	return frames
}

// Send runs one round trip in the current mode against the active session.
func (s *Service) Send(ctx context.Context, prompt string) (pipeline.Result, error) {
	return s.pipeline.Send(ctx, prompt, s.selector.CurrentMode())
}

// NewChat creates, persists and activates an empty session.
func (s *Service) NewChat(ctx context.Context) chat.Session {
	session := s.store.CreateSession(chat.DefaultTitle)
	if err := s.store.SetActive(session.ID); err != nil {
		s.log.Error("new session vanished before activation", zap.String("session", session.ID))
	}
	if err := s.store.Persist(ctx); err != nil {
		s.log.Warn("new session not persisted", zap.Error(err))
	}
	s.broadcast(s.sessionsFrame(), s.historyFrame())
	return session
}

// Switch activates the session with id and re-renders its history.
func (s *Service) Switch(id string) error {
	if err := s.store.SetActive(id); err != nil {
		return err
	}
	s.broadcast(s.sessionsFrame(), s.historyFrame())
	return nil
}

// SwitchIndex activates the n-th session (1-based, sidebar order).
func (s *Service) SwitchIndex(n int) error {
	sessions := s.store.Sessions()
	if n < 1 || n > len(sessions) {
		return fmt.Errorf("%w: %d", ErrSessionIndex, n)
	}
	return s.Switch(sessions[n-1].ID)
}

// SetMode parses raw and selects it.
func (s *Service) SetMode(raw string) error {
	m, err := chat.ParseMode(raw)
	if err != nil {
		return err
	}
	s.selector.SetMode(m)
	s.broadcast(render.Frame{Kind: render.FrameMode, Mode: string(m)})
	return nil
}

// Mode returns the selected reply mode.
func (s *Service) Mode() chat.Mode {
	return s.selector.CurrentMode()
}

// Sessions returns the sidebar projection.
func (s *Service) Sessions() []render.SessionItem {
	return render.ProjectSessions(s.store.Sessions(), s.store.ActiveID(), s.metaLayout)
}

// MessageAppended forwards appends to surfaces while that session is shown.
func (s *Service) MessageAppended(sessionID string, message chat.Message) {
	if sessionID != s.store.ActiveID() {
		return
	}
	instruction := render.FromMessage(message)
	s.broadcast(render.Frame{Kind: render.FrameMessage, SessionID: sessionID, Instruction: &instruction})
}

// SessionRenamed refreshes the sidebar.
func (s *Service) SessionRenamed(string, string) {
	s.broadcast(s.sessionsFrame())
}

// PendingChanged shows or clears the in-flight indicator.
func (s *Service) PendingChanged(state pipeline.PendingState) {
	s.broadcast(render.Frame{Kind: render.FramePending, Pending: render.ProjectPending(state)})
}

func (s *Service) sessionsFrame() render.Frame {
	return render.Frame{Kind: render.FrameSessions, Sessions: s.Sessions()}
}

func (s *Service) historyFrame() render.Frame {
	session, ok := s.store.Active()
	if !ok {
		return render.Frame{Kind: render.FrameHistory}
	}
	return render.Frame{
		Kind:         render.FrameHistory,
		SessionID:    session.ID,
		Instructions: render.Project(session),
	}
}

func (s *Service) broadcast(frames ...render.Frame) {
	s.mu.RLock()
	surfaces := append([]Surface(nil), s.surfaces...)
	s.mu.RUnlock()

	for _, surface := range surfaces {
		for _, frame := range frames {
			surface.Render(frame)
		}
	}
}
