package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrachat/astra/internal/config"
)

func TestSplitChunks(t *testing.T) {
	assert.Empty(t, SplitChunks("   ", 100))
	assert.Equal(t, []string{"short"}, SplitChunks(" short ", 100))

	long := strings.Repeat("word ", 30) + "end. Tail sentence here."
	chunks := SplitChunks(long, 100)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
	assert.Equal(t, strings.Join(strings.Fields(long), " "), strings.Join(chunks, " "))

	hard := SplitChunks(strings.Repeat("x", 250), 100)
	assert.Equal(t, []int{100, 100, 50}, []int{len(hard[0]), len(hard[1]), len(hard[2])})

	sentences := SplitChunks("One two. Three four.", 12)
	assert.Equal(t, []string{"One two.", "Three four."}, sentences)
}

func TestSynthesizeWritesConcatenatedChunks(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("idx")+":"+r.URL.Query().Get("tl"))
		mu.Unlock()
		w.Write([]byte("chunk" + r.URL.Query().Get("idx") + ";"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := NewService(config.SpeechConfig{Endpoint: srv.URL, Language: "en", Timeout: time.Second}, dir, nil)

	name, err := svc.Synthesize(context.Background(), strings.Repeat("abc ", 40))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mp3"))

	data, err := os.ReadFile(filepath.Join(dir, AudioSubdir, name))
	require.NoError(t, err)
	assert.Equal(t, "chunk0;chunk1;", string(data))
	assert.Equal(t, []string{"0:en", "1:en"}, seen)
	assert.Equal(t, "/static/audio/"+name, AudioURL(name))
}

func TestSynthesizeFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := NewService(config.SpeechConfig{Endpoint: srv.URL, Language: "en", Timeout: time.Second}, dir, nil)

	_, err := svc.Synthesize(context.Background(), "hello")
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, AudioSubdir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
