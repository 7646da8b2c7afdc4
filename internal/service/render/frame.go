package render

// FrameKind distinguishes the updates pushed to rendering surfaces.
type FrameKind string

const (
	// FrameHistory replaces the visible transcript and clears any pending indicator.
	FrameHistory FrameKind = "history"
	// FrameMessage appends one instruction to the visible transcript.
	FrameMessage FrameKind = "message"
	// FramePending shows or hides the in-flight indicator.
	FramePending FrameKind = "pending"
	// FrameSessions refreshes the session sidebar.
	FrameSessions FrameKind = "sessions"
	// FrameMode reports the selected reply mode.
	FrameMode FrameKind = "mode"
)

// Frame is one update for a rendering surface. Only the fields relevant to
// Kind are set.
type Frame struct {
	Kind         FrameKind     `json:"kind"`
	SessionID    string        `json:"sessionId,omitempty"`
	Instructions []Instruction `json:"instructions,omitempty"`
	Instruction  *Instruction  `json:"instruction,omitempty"`
	Pending      PendingView   `json:"pending,omitempty"`
	Sessions     []SessionItem `json:"sessions,omitempty"`
	Mode         string        `json:"mode,omitempty"`
}
