package chat_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrachat/astra/internal/model/chat"
)

func TestTitleFromPrompt(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "short", prompt: "Hello there", want: "Hello there"},
		{name: "exactly thirty", prompt: strings.Repeat("a", 30), want: strings.Repeat("a", 30)},
		{name: "thirty one", prompt: strings.Repeat("b", 31), want: strings.Repeat("b", 27) + "..."},
		{name: "multibyte", prompt: strings.Repeat("é", 40), want: strings.Repeat("é", 27) + "..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chat.TitleFromPrompt(tc.prompt))
		})
	}
}

func TestDecodeSessionsCorruptInput(t *testing.T) {
	sessions, dropped := chat.DecodeSessions([]byte("{not json"))
	assert.Empty(t, sessions)
	assert.Equal(t, 1, dropped)

	sessions, dropped = chat.DecodeSessions(nil)
	assert.Empty(t, sessions)
	assert.Zero(t, dropped)
}

func TestDecodeSessionsDropsInvalidRecords(t *testing.T) {
	data := []byte(`[
		{"id":"chat_1","title":"","messages":[
			{"type":"text","content":"hi","sender":"user","time":"10:00"},
			{"type":"gif","content":"x","sender":"bot","time":"10:01"},
			{"content":"legacy","sender":"bot","time":"10:02"}
		],"createdAt":"2024-05-01T10:00:00Z"},
		{"title":"orphan","messages":[]}
	]`)

	sessions, dropped := chat.DecodeSessions(data)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, dropped)

	s := sessions[0]
	assert.Equal(t, chat.DefaultTitle, s.Title)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, chat.TypeText, s.Messages[1].Type)
	assert.Equal(t, "legacy", s.Messages[1].Content)
}

func TestDecodeSessionsKeepsGoodRecordsBesideBadOnes(t *testing.T) {
	data := []byte(`[
		{"id":"a","title":"Kept","messages":[{"type":"text","content":"hi","sender":"user","time":"10:00"}],"createdAt":"2024-05-01T09:00:00Z"},
		{"id":"b","title":"Bad stamp","messages":[],"createdAt":""},
		{"id":7,"title":"Bad id"},
		{"id":"c","title":"Bad content","messages":[
			{"type":"text","content":42,"sender":"bot","time":"10:01"},
			{"type":"text","content":"ok","sender":"bot","time":"10:02"}
		],"createdAt":"2024-05-02T09:00:00Z"}
	]`)

	sessions, dropped := chat.DecodeSessions(data)
	require.Len(t, sessions, 3)
	assert.Equal(t, 2, dropped)

	assert.Equal(t, "a", sessions[0].ID)
	require.Len(t, sessions[0].Messages, 1)
	assert.Equal(t, 2024, sessions[0].CreatedAt.Year())

	assert.Equal(t, "b", sessions[1].ID)
	assert.True(t, sessions[1].CreatedAt.IsZero())

	assert.Equal(t, "c", sessions[2].ID)
	require.Len(t, sessions[2].Messages, 1)
	assert.Equal(t, "ok", sessions[2].Messages[0].Content)
}

func TestEncodeSessionsWritesEmptyMessageArrays(t *testing.T) {
	data, err := chat.EncodeSessions([]chat.Session{{ID: "a", Title: chat.DefaultTitle}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"messages":[]`)
}

func TestParseMode(t *testing.T) {
	m, err := chat.ParseMode(" Video ")
	require.NoError(t, err)
	assert.Equal(t, chat.ModeVideo, m)

	_, err = chat.ParseMode("hologram")
	assert.ErrorIs(t, err, chat.ErrInvalidMode)
}
