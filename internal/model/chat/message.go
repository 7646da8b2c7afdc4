package chat

import (
	"encoding/json"
	"fmt"
)

// MessageType is the medium a message carries.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeAudio MessageType = "audio"
	TypeVideo MessageType = "video"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeAudio, TypeVideo:
		return true
	}
	return false
}

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is user or bot.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message is one immutable entry of a session transcript. For text messages
// Content is the literal string, for audio and video it is a media reference.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	Sender  Sender      `json:"sender"`
	Time    string      `json:"time"`
}

// Validate checks the closed fields of a decoded message.
func (m Message) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	if !m.Sender.Valid() {
		return fmt.Errorf("unknown sender %q", m.Sender)
	}
	return nil
}

// UnmarshalJSON tolerates the loosely typed records older clients wrote:
// a missing type defaults to text.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		raw.Type = TypeText
	}
	*m = Message(raw)
	return nil
}
