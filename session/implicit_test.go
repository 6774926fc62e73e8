package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard-io/fraudguard/core"
)

func TestImplicitService_FirstContactCreates(t *testing.T) {
	store := NewInMemoryService()
	svc := NewImplicitService(store)
	ctx := context.Background()

	sess, err := svc.GetSession(ctx, "fraud", "alice", "ignored", nil)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.GetEvents())
	assert.Empty(t, sess.State)

	// Exactly one session was created behind the proxy.
	summaries, err := store.ListSessions(ctx, "fraud", "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, sess.ID, summaries[0].ID)
}

func TestImplicitService_SteadyStateIdempotent(t *testing.T) {
	svc := NewImplicitService(NewInMemoryService())
	ctx := context.Background()

	first, err := svc.GetSession(ctx, "fraud", "alice", "ignored", nil)
	require.NoError(t, err)

	second, err := svc.GetSession(ctx, "fraud", "alice", "ignored", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestImplicitService_ReusesFirstListedWithFullHistory(t *testing.T) {
	store := NewInMemoryService()
	svc := NewImplicitService(store)
	ctx := context.Background()

	s1, err := store.CreateSession(ctx, "fraud", "bob", nil, "s1")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "fraud", "bob", nil, "s2")
	require.NoError(t, err)

	_, err = store.AppendEvent(ctx, s1, core.NewUserMessageEvent("run-1", "transaction one"))
	require.NoError(t, err)
	_, err = store.AppendEvent(ctx, s1, core.NewMessageEvent("detector", "scored"))
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, "fraud", "bob", "s2", nil)
	require.NoError(t, err)

	// First in listing order wins; the caller supplied id is ignored and the
	// returned session carries full history, not a bare summary.
	assert.Equal(t, "s1", got.ID)
	assert.Len(t, got.GetEvents(), 2)
}

func TestImplicitService_AppendVisibleOnNextResolve(t *testing.T) {
	svc := NewImplicitService(NewInMemoryService())
	ctx := context.Background()

	sess, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)

	stored, err := svc.AppendEvent(ctx, sess, core.NewUserMessageEvent("run-1", "hello"))
	require.NoError(t, err)

	again, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)

	events := again.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, stored.ID, events[0].ID)
}

func TestImplicitService_DeleteThenGetCreatesFresh(t *testing.T) {
	svc := NewImplicitService(NewInMemoryService())
	ctx := context.Background()

	old, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)
	_, err = svc.AppendEvent(ctx, old, core.NewUserMessageEvent("run-1", "hello"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, "fraud", "alice", old.ID))

	fresh, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, old.ID, fresh.ID, "deleted session must not be resurrected")
	assert.Empty(t, fresh.GetEvents())
}

func TestImplicitService_PassThroughFidelity(t *testing.T) {
	store := NewInMemoryService()
	svc := NewImplicitService(store)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "fraud", "carol", map[string]any{"seed": 1}, "c1")
	require.NoError(t, err)
	direct, err := store.GetSession(ctx, "fraud", "carol", "c1", nil)
	require.NoError(t, err)
	assert.Equal(t, direct.ID, created.ID)
	assert.Equal(t, direct.State, created.State)

	viaProxy, err := svc.ListSessions(ctx, "fraud", "carol")
	require.NoError(t, err)
	directList, err := store.ListSessions(ctx, "fraud", "carol")
	require.NoError(t, err)
	assert.Equal(t, directList, viaProxy)

	stored, err := svc.AppendEvent(ctx, created, core.NewUserMessageEvent("run-1", "hi"))
	require.NoError(t, err)
	fetched, err := store.GetSession(ctx, "fraud", "carol", "c1", nil)
	require.NoError(t, err)
	require.Len(t, fetched.Events, 1)
	assert.Equal(t, stored.ID, fetched.Events[0].ID)

	require.NoError(t, svc.DeleteSession(ctx, "fraud", "carol", "c1"))
	_, err = store.GetSession(ctx, "fraud", "carol", "c1", nil)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestImplicitService_NoDedupOnCreate(t *testing.T) {
	svc := NewImplicitService(NewInMemoryService())
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "fraud", "alice", nil, "")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "fraud", "alice", nil, "")
	require.NoError(t, err)

	summaries, err := svc.ListSessions(ctx, "fraud", "alice")
	require.NoError(t, err)
	assert.Len(t, summaries, 2, "explicit creates are not deduplicated by the proxy")
}

var errStoreDown = errors.New("store unavailable")

// failingService returns a store-level failure from every operation.
type failingService struct{}

func (failingService) CreateSession(context.Context, string, string, map[string]any, string) (*core.Session, error) {
	return nil, errStoreDown
}

func (failingService) GetSession(context.Context, string, string, string, *core.GetSessionConfig) (*core.Session, error) {
	return nil, errStoreDown
}

func (failingService) ListSessions(context.Context, string, string) ([]core.SessionSummary, error) {
	return nil, errStoreDown
}

func (failingService) DeleteSession(context.Context, string, string, string) error {
	return errStoreDown
}

func (failingService) AppendEvent(context.Context, *core.Session, core.Event) (core.Event, error) {
	return core.Event{}, errStoreDown
}

func TestImplicitService_StoreFailuresPropagateUnchanged(t *testing.T) {
	svc := NewImplicitService(failingService{})
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.CreateSession(ctx, "fraud", "alice", nil, "")
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.ListSessions(ctx, "fraud", "alice")
	assert.ErrorIs(t, err, errStoreDown)

	assert.ErrorIs(t, svc.DeleteSession(ctx, "fraud", "alice", "s1"), errStoreDown)

	_, err = svc.AppendEvent(ctx, core.NewSession("fraud", "alice", "s1"), core.NewUserMessageEvent("run", "hi"))
	assert.ErrorIs(t, err, errStoreDown)
}

// gatedService holds every ListSessions call at a barrier until the expected
// number of callers have arrived, forcing them all to observe the same
// pre-create listing.
type gatedService struct {
	core.SessionService
	arrivals *sync.WaitGroup
}

func (g gatedService) ListSessions(ctx context.Context, appName, userID string) ([]core.SessionSummary, error) {
	summaries, err := g.SessionService.ListSessions(ctx, appName, userID)
	g.arrivals.Done()
	g.arrivals.Wait()
	return summaries, err
}

// Two concurrent first contacts can both observe an empty listing and both
// create a session. The proxy deliberately performs no per-user locking;
// this test pins down the documented behavior.
func TestImplicitService_ConcurrentFirstContactRace(t *testing.T) {
	store := NewInMemoryService()
	arrivals := &sync.WaitGroup{}
	arrivals.Add(2)
	svc := NewImplicitService(gatedService{SessionService: store, arrivals: arrivals})
	ctx := context.Background()

	var done sync.WaitGroup
	ids := make([]string, 2)
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			sess, err := svc.GetSession(ctx, "fraud", "alice", "", nil)
			if assert.NoError(t, err) {
				ids[i] = sess.ID
			}
		}(i)
	}
	done.Wait()

	assert.NotEqual(t, ids[0], ids[1])

	summaries, err := store.ListSessions(ctx, "fraud", "alice")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}
