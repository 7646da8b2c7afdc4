package render_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/service/pipeline"
	"github.com/astrachat/astra/internal/service/render"
)

func sampleSession() chat.Session {
	return chat.Session{
		ID:    "chat_1",
		Title: "Sunsets",
		Messages: []chat.Message{
			{Type: chat.TypeText, Content: "Show me a sunset video", Sender: chat.SenderUser, Time: "18:01"},
			{Type: chat.TypeText, Content: "Here it is", Sender: chat.SenderBot, Time: "18:02"},
			{Type: chat.TypeVideo, Content: "/media/v1.mp4", Sender: chat.SenderBot, Time: "18:02"},
		},
	}
}

func TestProjectKeepsOrderAndFields(t *testing.T) {
	session := sampleSession()
	got := render.Project(session)

	require.Len(t, got, 3)
	for i, m := range session.Messages {
		assert.Equal(t, m.Type, got[i].Type)
		assert.Equal(t, m.Content, got[i].Content)
		assert.Equal(t, m.Sender, got[i].Sender)
		assert.Equal(t, m.Time, got[i].Time)
	}
}

func TestProjectDoesNotMutateSession(t *testing.T) {
	session := sampleSession()
	before := session.Clone()

	got := render.Project(session)
	got[0].Content = "changed"

	assert.Equal(t, before, session)
}

func TestProjectEmptySession(t *testing.T) {
	assert.Empty(t, render.Project(chat.Session{ID: "x"}))
}

func TestProjectPending(t *testing.T) {
	assert.Equal(t, render.ViewTypingDots, render.ProjectPending(pipeline.PendingTyping))
	assert.Equal(t, render.ViewGenerationOverlay, render.ProjectPending(pipeline.PendingGenerating))
	assert.Equal(t, render.ViewNone, render.ProjectPending(pipeline.PendingIdle))
}

func TestProjectSessions(t *testing.T) {
	created := time.Date(2024, 3, 9, 8, 7, 0, 0, time.Local)
	sessions := []chat.Session{
		{ID: "a", Title: "", CreatedAt: created},
		{ID: "b", Title: "Trip", CreatedAt: created},
	}

	items := render.ProjectSessions(sessions, "b", "Jan 2, 15:04")
	require.Len(t, items, 2)
	assert.Equal(t, chat.DefaultTitle, items[0].Title)
	assert.False(t, items[0].Active)
	assert.True(t, items[1].Active)
	assert.Equal(t, "Mar 9, 08:07", items[1].Meta)
}
