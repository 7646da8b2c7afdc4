package render

import (
	"time"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/service/pipeline"
)

// Instruction tells a rendering surface how to draw one message.
type Instruction struct {
	Type    chat.MessageType `json:"type"`
	Content string           `json:"content"`
	Sender  chat.Sender      `json:"sender"`
	Time    string           `json:"time"`
}

// FromMessage copies a message verbatim into an instruction.
func FromMessage(m chat.Message) Instruction {
	return Instruction{Type: m.Type, Content: m.Content, Sender: m.Sender, Time: m.Time}
}

// Project returns one instruction per message, in stored order.
func Project(session chat.Session) []Instruction {
	out := make([]Instruction, 0, len(session.Messages))
	for _, m := range session.Messages {
		out = append(out, FromMessage(m))
	}
	return out
}

// PendingView is the transient indicator drawn for a pending state.
type PendingView string

const (
	ViewNone PendingView = ""
	// ViewTypingDots is the inline "..." bubble.
	ViewTypingDots PendingView = "typing-dots"
	// ViewGenerationOverlay is the full overlay shown while video renders.
	ViewGenerationOverlay PendingView = "generation-overlay"
)

// ProjectPending maps a pipeline pending state onto its indicator.
func ProjectPending(state pipeline.PendingState) PendingView {
	switch state {
	case pipeline.PendingTyping:
		return ViewTypingDots
	case pipeline.PendingGenerating:
		return ViewGenerationOverlay
	default:
		return ViewNone
	}
}

// SessionItem is one row of the session sidebar.
type SessionItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Meta   string `json:"meta"`
	Active bool   `json:"active"`
}

// ProjectSessions lists sessions in store order with creation metadata
// formatted by metaLayout in the local zone.
func ProjectSessions(sessions []chat.Session, activeID, metaLayout string) []SessionItem {
	items := make([]SessionItem, 0, len(sessions))
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = chat.DefaultTitle
		}
		items = append(items, SessionItem{
			ID:     s.ID,
			Title:  title,
			Meta:   formatMeta(s.CreatedAt, metaLayout),
			Active: s.ID == activeID,
		})
	}
	return items
}

func formatMeta(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(layout)
}
