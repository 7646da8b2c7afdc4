package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/model/responder"
	chatservice "github.com/astrachat/astra/internal/service/chat"
)

const (
	// ErrorPrefix precedes application errors reported by the responder.
	ErrorPrefix = "Error: "
	// ConnectFailureText is appended when no response could be obtained.
	ConnectFailureText = "Failed to connect to server."
)

var (
	ErrEmptyPrompt     = errors.New("prompt is empty")
	ErrNoActiveSession = errors.New("no active session")
)

// Responder dispatches one prompt and waits for the reply.
type Responder interface {
	Process(ctx context.Context, req responder.ProcessRequest) (responder.ProcessResponse, error)
}

// Listener observes pipeline side effects, typically to drive rendering.
type Listener interface {
	MessageAppended(sessionID string, message chat.Message)
	SessionRenamed(sessionID, title string)
	PendingChanged(state PendingState)
}

// Result describes what one Send appended.
type Result struct {
	SessionID string
	Appended  []chat.Message
	// TransportErr is set when the responder could not be reached.
	TransportErr error
}

// Pipeline runs the prompt → responder → transcript round trip.
type Pipeline struct {
	store     *chatservice.Store
	responder Responder
	listener  Listener
	pending   *PendingSignal
	now       func() time.Time
	layout    string
	log       *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithListener registers the observer of appends and pending changes.
func WithListener(l Listener) Option {
	return func(p *Pipeline) { p.listener = l }
}

// WithClock sets the time source and the hour:minute layout for message stamps.
func WithClock(now func() time.Time, layout string) Option {
	return func(p *Pipeline) {
		p.now = now
		if layout != "" {
			p.layout = layout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New wires a pipeline over store and responder.
func New(store *chatservice.Store, r Responder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		responder: r,
		now:       time.Now,
		layout:    "15:04",
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pending = NewPendingSignal(func(state PendingState) {
		if p.listener != nil {
			p.listener.PendingChanged(state)
		}
	})
	return p
}

// Pending returns the current pending state.
func (p *Pipeline) Pending() PendingState {
	return p.pending.State()
}

// Send records prompt in the active session, dispatches it in mode m and
// appends the reply messages. Whitespace-only prompts are rejected with
// ErrEmptyPrompt and no side effects. Responder failures are turned into bot
// messages, so the returned error only covers rejected input.
//
// Concurrent sends are not serialized; their replies land in arrival order.
// When ctx is cancelled before the reply arrives nothing is appended for it.
func (p *Pipeline) Send(ctx context.Context, prompt string, m chat.Mode) (Result, error) {
	if !m.Valid() {
		panic(fmt.Sprintf("pipeline: unknown reply mode %q", m))
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	session, ok := p.store.Active()
	if !ok {
		return Result{}, ErrNoActiveSession
	}

	res := Result{SessionID: session.ID}
	p.append(ctx, &res, chat.TypeText, chat.SenderUser, prompt)

	if title, renamed := p.store.RenameIfDefaultTitle(session.ID, prompt); renamed {
		p.persist(ctx)
		if p.listener != nil {
			p.listener.SessionRenamed(session.ID, title)
		}
	}

	release := p.pending.Acquire(m)
	defer release()

	resp, err := p.responder.Process(ctx, responder.ProcessRequest{Prompt: prompt, Mode: m})
	release()

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Abandoned by the caller, e.g. on shutdown.
		p.log.Info("send abandoned", zap.String("session", session.ID), zap.Error(err))
		res.TransportErr = err
		return res, nil
	}
	if err != nil {
		p.log.Warn("responder unreachable",
			zap.String("session", session.ID),
			zap.String("mode", string(m)),
			zap.Error(err))
		res.TransportErr = err
		p.append(ctx, &res, chat.TypeText, chat.SenderBot, ConnectFailureText)
		return res, nil
	}

	if resp.HasError() {
		p.append(ctx, &res, chat.TypeText, chat.SenderBot, ErrorPrefix+resp.ErrorText())
		return res, nil
	}

	p.append(ctx, &res, chat.TypeText, chat.SenderBot, resp.Text())

	if audio, ok := resp.Audio(); ok && m == chat.ModeAudio {
		p.append(ctx, &res, chat.TypeAudio, chat.SenderBot, audio)
	}
	if video, ok := resp.Video(); ok && m == chat.ModeVideo {
		p.append(ctx, &res, chat.TypeVideo, chat.SenderBot, video)
	}

	return res, nil
}

func (p *Pipeline) append(ctx context.Context, res *Result, t chat.MessageType, sender chat.Sender, content string) {
	msg := chat.Message{
		Type:    t,
		Content: content,
		Sender:  sender,
		Time:    p.now().Format(p.layout),
	}
	if err := p.store.AppendMessage(res.SessionID, msg); err != nil {
		p.log.Warn("dropping message for missing session", zap.String("session", res.SessionID))
		return
	}
	res.Appended = append(res.Appended, msg)
	p.persist(ctx)

	if p.listener != nil {
		p.listener.MessageAppended(res.SessionID, msg)
	}
}

func (p *Pipeline) persist(ctx context.Context) {
	// Persistence failures are logged by the store; the transcript stays in memory.
	_ = p.store.Persist(context.WithoutCancel(ctx))
}
