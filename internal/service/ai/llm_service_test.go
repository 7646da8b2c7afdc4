package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func newOllamaServer(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaClient(srv.URL, "llama3", time.Second)
}

func TestReplyUsesChatModel(t *testing.T) {
	fake := &fakeChatModel{reply: "from ark"}
	svc, err := newService(context.Background(), fake, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "from ark", svc.Reply(context.Background(), "hello"))
	require.Len(t, fake.seen, 2)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Equal(t, "hello", fake.seen[1].Content)
}

func TestReplyFallsBackToOllama(t *testing.T) {
	ollama := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		w.Write([]byte(`{"response":"from ollama: ` + req.Prompt + `"}`))
	})

	svc, err := newService(context.Background(), &fakeChatModel{err: errors.New("quota")}, ollama, nil)
	require.NoError(t, err)
	assert.Equal(t, "from ollama: hi", svc.Reply(context.Background(), "hi"))
}

func TestReplyFallbackText(t *testing.T) {
	ollama := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	svc, err := newService(context.Background(), nil, ollama, nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, svc.Reply(context.Background(), "hi"))
}

func TestOllamaMissingResponseField(t *testing.T) {
	ollama := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done":true}`))
	})

	text, err := ollama.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, NoResponseText, text)
}
