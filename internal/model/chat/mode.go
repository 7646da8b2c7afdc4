package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned when a mode string is outside the closed set.
var ErrInvalidMode = errors.New("invalid mode")

// Mode is the reply medium requested for a round trip.
type Mode string

const (
	ModeText  Mode = "text"
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

// Modes lists the supported modes in display order.
func Modes() []Mode {
	return []Mode{ModeText, ModeAudio, ModeVideo}
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeText, ModeAudio, ModeVideo:
		return true
	}
	return false
}

// ParseMode converts user input into a Mode.
func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
	return m, nil
}
