package mode

import (
	"fmt"
	"sync"

	"github.com/astrachat/astra/internal/model/chat"
)

// Selector holds the reply mode used for the next round trip.
type Selector struct {
	mu      sync.RWMutex
	current chat.Mode
}

// NewSelector starts in initial, which must be a known mode.
func NewSelector(initial chat.Mode) *Selector {
	s := &Selector{}
	s.SetMode(initial)
	return s
}

// SetMode switches the current mode. Values outside text/audio/video come
// from a closed set of controls, so an unknown one panics.
func (s *Selector) SetMode(m chat.Mode) {
	if !m.Valid() {
		panic(fmt.Sprintf("mode: unknown reply mode %q", m))
	}
	s.mu.Lock()
	s.current = m
	s.mu.Unlock()
}

// CurrentMode returns the selected mode.
func (s *Selector) CurrentMode() chat.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
