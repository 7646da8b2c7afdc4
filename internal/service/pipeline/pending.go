package pipeline

import (
	"sync"

	"github.com/astrachat/astra/internal/model/chat"
)

// PendingState is the transient in-flight indicator shown while a round trip
// is outstanding. It is never persisted.
type PendingState string

const (
	PendingIdle PendingState = "idle"
	// PendingTyping is the indeterminate "awaiting reply" marker for text and audio.
	PendingTyping PendingState = "typing"
	// PendingGenerating is the long-running generation marker for video.
	PendingGenerating PendingState = "generating"
)

// PendingFor maps a reply mode to the state shown while it is in flight.
func PendingFor(m chat.Mode) PendingState {
	if m == chat.ModeVideo {
		return PendingGenerating
	}
	return PendingTyping
}

// PendingSignal tracks the current pending state and reports changes.
type PendingSignal struct {
	mu       sync.Mutex
	state    PendingState
	onChange func(PendingState)
}

// NewPendingSignal starts idle. onChange may be nil.
func NewPendingSignal(onChange func(PendingState)) *PendingSignal {
	return &PendingSignal{state: PendingIdle, onChange: onChange}
}

// State returns the current state.
func (p *PendingSignal) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Acquire enters the pending state for m and returns the release func. The
// two non-idle states are exclusive: entering one replaces the other. Release
// clears to idle unconditionally and is safe to call more than once.
func (p *PendingSignal) Acquire(m chat.Mode) (release func()) {
	p.set(PendingFor(m))

	var once sync.Once
	return func() {
		once.Do(func() { p.set(PendingIdle) })
	}
}

func (p *PendingSignal) set(state PendingState) {
	p.mu.Lock()
	p.state = state
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}
