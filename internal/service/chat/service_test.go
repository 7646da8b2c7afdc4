package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/astrachat/astra/internal/model/chat"
	chat "github.com/astrachat/astra/internal/service/chat"
	"github.com/astrachat/astra/internal/storage"
)

const key = "astraChats"

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("chat_%d", n)
	}
}

func newStore(backend storage.Backend) *chat.Store {
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return chat.NewStore(backend, key,
		chat.WithIDGenerator(sequentialIDs()),
		chat.WithClock(func() time.Time { return fixed }),
	)
}

func TestEmptyStoreBootstrap(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := newStore(backend)
	ctx := context.Background()

	assert.Empty(t, store.LoadAll(ctx))
	require.NoError(t, store.EnsureNonEmpty(ctx))

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, model.DefaultTitle, sessions[0].Title)
	assert.Empty(t, sessions[0].Messages)

	active, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, sessions[0].ID, active.ID)

	_, err := backend.Load(ctx, key)
	assert.NoError(t, err, "bootstrap session must be persisted")
}

func TestEnsureNonEmptyKeepsExistingSessions(t *testing.T) {
	store := newStore(storage.NewMemoryBackend())
	ctx := context.Background()
	store.LoadAll(ctx)
	first := store.CreateSession("")
	require.NoError(t, store.EnsureNonEmpty(ctx))

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, first.ID, store.ActiveID())
}

func TestCorruptStorageLoadsEmpty(t *testing.T) {
	backend := storage.NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, key, []byte("][")))

	store := newStore(backend)
	assert.Empty(t, store.LoadAll(ctx))
	require.NoError(t, store.EnsureNonEmpty(ctx))
	assert.Len(t, store.Sessions(), 1)
}

type failingBackend struct{ storage.Backend }

func (failingBackend) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingBackend) Save(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestBackendFailuresAreNotFatal(t *testing.T) {
	store := newStore(failingBackend{})
	ctx := context.Background()

	assert.Empty(t, store.LoadAll(ctx))
	err := store.EnsureNonEmpty(ctx)
	assert.Error(t, err)

	_, ok := store.Active()
	assert.True(t, ok, "store stays usable after a failed write")
}

func TestPersistRoundTrip(t *testing.T) {
	backend := storage.NewMemoryBackend()
	ctx := context.Background()

	store := newStore(backend)
	store.LoadAll(ctx)
	require.NoError(t, store.EnsureNonEmpty(ctx))
	second := store.CreateSession("Second")
	require.NoError(t, store.AppendMessage(second.ID, model.Message{Type: model.TypeText, Content: "hi", Sender: model.SenderUser, Time: "09:30"}))
	require.NoError(t, store.AppendMessage(second.ID, model.Message{Type: model.TypeAudio, Content: "/static/audio/a.mp3", Sender: model.SenderBot, Time: "09:31"}))
	require.NoError(t, store.Persist(ctx))
	before := store.Sessions()

	reloaded := newStore(backend)
	after := reloaded.LoadAll(ctx)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Title, after[i].Title)
		assert.Equal(t, before[i].Messages, after[i].Messages)
		assert.True(t, before[i].CreatedAt.Equal(after[i].CreatedAt))
	}
	assert.Equal(t, second.ID, reloaded.ActiveID(), "last session is active after load")
}

func TestSetActiveUnknownIDIsNoop(t *testing.T) {
	store := newStore(storage.NewMemoryBackend())
	ctx := context.Background()
	store.LoadAll(ctx)
	require.NoError(t, store.EnsureNonEmpty(ctx))
	current := store.ActiveID()

	err := store.SetActive("missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Equal(t, current, store.ActiveID())
}

func TestCreateSessionDoesNotActivateOrPersist(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := newStore(backend)
	ctx := context.Background()
	store.LoadAll(ctx)
	require.NoError(t, store.EnsureNonEmpty(ctx))
	first := store.ActiveID()

	created := store.CreateSession("")
	assert.Equal(t, model.DefaultTitle, created.Title)
	assert.Equal(t, first, store.ActiveID())

	reloaded := newStore(backend)
	assert.Len(t, reloaded.LoadAll(ctx), 1)

	sessions := store.Sessions()
	assert.Equal(t, created.ID, sessions[len(sessions)-1].ID, "new sessions go last")
}

func TestAppendMessageUnknownSession(t *testing.T) {
	store := newStore(storage.NewMemoryBackend())
	err := store.AppendMessage("gone", model.Message{Type: model.TypeText, Sender: model.SenderBot})
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestRenameIfDefaultTitleOnlyOnce(t *testing.T) {
	store := newStore(storage.NewMemoryBackend())
	s := store.CreateSession("")

	title, ok := store.RenameIfDefaultTitle(s.ID, "Plan a trip to Lisbon for the whole family")
	require.True(t, ok)
	assert.Equal(t, "Plan a trip to Lisbon for t...", title)

	_, ok = store.RenameIfDefaultTitle(s.ID, "Something else")
	assert.False(t, ok)

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan a trip to Lisbon for t...", got.Title)
}

func TestReturnedSessionsDoNotAliasStore(t *testing.T) {
	store := newStore(storage.NewMemoryBackend())
	s := store.CreateSession("")
	require.NoError(t, store.AppendMessage(s.ID, model.Message{Type: model.TypeText, Content: "a", Sender: model.SenderUser}))

	copyOf, err := store.Get(s.ID)
	require.NoError(t, err)
	copyOf.Messages[0].Content = "mutated"

	again, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Messages[0].Content)
}
