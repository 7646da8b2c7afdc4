package chat

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// DefaultTitle is the sentinel title a session keeps until its first user message.
const DefaultTitle = "New chat"

const (
	maxTitleLength  = 30
	truncatedLength = 27
	ellipsis        = "..."
)

// Session is one conversation thread with its own ordered transcript.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasDefaultTitle reports whether the title may still be replaced.
func (s Session) HasDefaultTitle() bool {
	return s.Title == "" || s.Title == DefaultTitle
}

// Clone returns a copy whose message slice does not alias s.
func (s Session) Clone() Session {
	cp := s
	cp.Messages = append([]Message(nil), s.Messages...)
	return cp
}

// TitleFromPrompt derives a session title from a user prompt. Prompts longer
// than 30 characters keep their first 27 characters followed by "...".
func TitleFromPrompt(prompt string) string {
	if utf8.RuneCountInString(prompt) <= maxTitleLength {
		return prompt
	}
	runes := []rune(prompt)
	return string(runes[:truncatedLength]) + ellipsis
}

// sessionRecord mirrors Session with the loosely typed fields left raw so a
// single malformed value does not reject the whole list.
type sessionRecord struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Messages  []json.RawMessage `json:"messages"`
	CreatedAt json.RawMessage   `json:"createdAt"`
}

// DecodeSessions parses a persisted session list. Unparseable input yields an
// empty list. Each record is decoded on its own: records that fail to decode
// or lack an id are dropped, as are messages that fail to decode or carry an
// unknown type or sender. An unreadable createdAt becomes the zero time. The
// second return value counts dropped records and messages.
func DecodeSessions(data []byte) ([]Session, int) {
	if len(data) == 0 {
		return nil, 0
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 1
	}

	dropped := 0
	sessions := make([]Session, 0, len(raw))
	for _, item := range raw {
		var rec sessionRecord
		if err := json.Unmarshal(item, &rec); err != nil || rec.ID == "" {
			dropped++
			continue
		}

		s := Session{ID: rec.ID, Title: rec.Title, CreatedAt: decodeTime(rec.CreatedAt)}
		if s.Title == "" {
			s.Title = DefaultTitle
		}
		s.Messages = make([]Message, 0, len(rec.Messages))
		for _, rm := range rec.Messages {
			var m Message
			if err := json.Unmarshal(rm, &m); err != nil {
				dropped++
				continue
			}
			if err := m.Validate(); err != nil {
				dropped++
				continue
			}
			s.Messages = append(s.Messages, m)
		}
		sessions = append(sessions, s)
	}
	return sessions, dropped
}

func decodeTime(raw json.RawMessage) time.Time {
	var t time.Time
	if len(raw) == 0 {
		return t
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return time.Time{}
	}
	return t
}

// EncodeSessions serializes the session list in the persisted schema.
func EncodeSessions(sessions []Session) ([]byte, error) {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		if s.Messages == nil {
			s.Messages = []Message{}
		}
		out[i] = s
	}
	return json.Marshal(out)
}
