package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/records"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/dmitrijs2005/socialhub/internal/remote/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedProfiles blocks every GetByID until release is closed for that user.
type gatedProfiles struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	err     error
	calls   int
}

func newGatedProfiles() *gatedProfiles {
	return &gatedProfiles{gates: make(map[string]chan struct{}), started: make(chan string, 16)}
}

func (g *gatedProfiles) gate(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan struct{})
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedProfiles) release(id string) { close(g.gate(id)) }

func (g *gatedProfiles) GetByID(ctx context.Context, collection, id string) (models.Record, error) {
	g.mu.Lock()
	g.calls++
	err := g.err
	g.mu.Unlock()

	g.started <- id
	<-g.gate(id)
	if err != nil {
		return nil, err
	}
	return models.Record{"id": id, "full_name": "User " + id}, nil
}

type panickingProfiles struct{}

func (panickingProfiles) GetByID(context.Context, string, string) (models.Record, error) {
	panic("boom")
}

func newController(t *testing.T, store *memory.Store, profiles ProfileSource) *Controller {
	t.Helper()
	c := New(store.Auth(), profiles, logging.NewNop())
	t.Cleanup(c.Close)
	return c
}

func TestStart_AnonymousWhenNoSession(t *testing.T) {
	store := memory.New()
	c := newController(t, store, newGatedProfiles())

	before := c.State()
	require.Equal(t, StatusUninitialized, before.Status)
	require.True(t, before.Loading)
	require.Nil(t, before.User)
	require.NoError(t, c.Start(context.Background()))

	st := c.State()
	require.Equal(t, StatusAnonymous, st.Status)
	require.False(t, st.Loading)
	require.Nil(t, st.User)
	require.False(t, st.ProfileLoading)
	require.Equal(t, 1, store.ListenerCount())

	require.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
}

func TestStart_AuthenticatedWithExistingSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.SignUp(ctx, "ann@example.com", "secret1", models.SignUpOptions{})
	require.NoError(t, err)

	svc := records.NewService(store, logging.NewNop())
	c := newController(t, store, svc)
	require.NoError(t, c.Start(ctx))

	st := c.State()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.False(t, st.Loading)
	require.Equal(t, "ann@example.com", st.User.Email)

	c.Wait()
	st = c.State()
	require.False(t, st.ProfileLoading)
	require.Equal(t, st.User.ID, st.Profile.ID())
	require.Equal(t, "ann@example.com", st.Profile["email"])
}

func TestStart_GetSessionFailureResolvesAnonymous(t *testing.T) {
	store := memory.New()
	store.FailNext(memory.OpGetSession, common.ErrUnavailable)
	c := newController(t, store, newGatedProfiles())

	err := c.Start(context.Background())
	require.ErrorIs(t, err, common.ErrAuthOperation)
	require.ErrorIs(t, err, common.ErrUnavailable)

	st := c.State()
	require.Equal(t, StatusAnonymous, st.Status)
	require.False(t, st.Loading)
}

// blockingAuth holds GetSession until answer is sent. remote.Auth methods
// other than GetSession and OnAuthStateChange are not used.
type blockingAuth struct {
	remote.Auth

	mu       sync.Mutex
	listener remote.AuthListener
	asked    chan struct{}
	answer   chan *models.Session
}

func (b *blockingAuth) OnAuthStateChange(l remote.AuthListener) func() {
	b.mu.Lock()
	b.listener = l
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.listener = nil
		b.mu.Unlock()
	}
}

func (b *blockingAuth) GetSession(ctx context.Context) (*models.Session, error) {
	close(b.asked)
	return <-b.answer, nil
}

func (b *blockingAuth) fire(ev models.AuthEvent, s *models.Session) {
	b.mu.Lock()
	l := b.listener
	b.mu.Unlock()
	l(ev, s)
}

func TestStart_EventDuringGetSessionWins(t *testing.T) {
	auth := &blockingAuth{asked: make(chan struct{}), answer: make(chan *models.Session)}
	profiles := newGatedProfiles()
	c := New(auth, profiles, logging.NewNop())
	t.Cleanup(c.Close)

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background()) }()

	<-auth.asked
	require.True(t, c.State().Loading)

	auth.fire(models.AuthSignedIn, &models.Session{AccessToken: "a", User: &models.User{ID: "u1", Email: "u1@example.com"}})
	require.Equal(t, StatusAuthenticated, c.State().Status)

	// the stale answer says nobody is signed in
	auth.answer <- nil
	require.NoError(t, <-started)

	st := c.State()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.False(t, st.Loading)
	require.Equal(t, "u1", st.UserID())

	profiles.release(<-profiles.started)
	c.Wait()
	require.Equal(t, "u1", c.State().Profile.ID())
}

func TestObservers_NeverSeeResolvedLoadingWithoutUserDecision(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.SignUp(ctx, "bo@example.com", "secret1", models.SignUpOptions{})
	require.NoError(t, err)

	profiles := newGatedProfiles()
	c := newController(t, store, profiles)

	var mu sync.Mutex
	var seen []State
	unsubscribe := c.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, c.Start(ctx))
	<-profiles.started
	profiles.release(c.State().UserID())
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 3)
	require.True(t, seen[0].Loading)
	for _, s := range seen {
		if !s.Loading {
			require.Equal(t, StatusAuthenticated, s.Status)
			require.NotNil(t, s.User)
		}
	}
	last := seen[len(seen)-1]
	require.False(t, last.ProfileLoading)
	require.NotNil(t, last.Profile)
}

func TestProfileLoad_SignOutDiscardsStaleResult(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	profiles := newGatedProfiles()
	c := newController(t, store, profiles)
	require.NoError(t, c.Start(ctx))

	_, err := c.SignUp(ctx, "cy@example.com", "secret1", ProfileFields{FullName: "Cy"})
	require.NoError(t, err)

	userID := <-profiles.started
	st := c.State()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.True(t, st.ProfileLoading)

	require.NoError(t, c.SignOut(ctx))
	st = c.State()
	require.Equal(t, StatusAnonymous, st.Status)
	require.False(t, st.ProfileLoading)

	profiles.release(userID)
	c.Wait()

	st = c.State()
	require.Nil(t, st.User)
	require.Nil(t, st.Profile)
	require.False(t, st.ProfileLoading)
}

func TestProfileLoad_LastDispatchWins(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.SignUp(ctx, "a@example.com", "secret1", models.SignUpOptions{})
	require.NoError(t, err)
	_, err = store.SignUp(ctx, "b@example.com", "secret1", models.SignUpOptions{})
	require.NoError(t, err)

	profiles := newGatedProfiles()
	c := newController(t, store, profiles)
	require.NoError(t, store.SignOut(ctx))
	require.NoError(t, c.Start(ctx))

	_, err = c.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	first := <-profiles.started

	_, err = c.SignIn(ctx, "b@example.com", "secret1")
	require.NoError(t, err)
	second := <-profiles.started
	require.NotEqual(t, first, second)

	// the newer load completes first, the superseded one afterwards
	profiles.release(second)
	require.Eventually(t, func() bool { return !c.State().ProfileLoading }, time.Second, 5*time.Millisecond)
	profiles.release(first)
	c.Wait()

	st := c.State()
	require.Equal(t, second, st.User.ID)
	require.Equal(t, second, st.Profile.ID())
}

func TestProfileLoad_FailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	profiles := newGatedProfiles()
	profiles.err = errors.New("profiles down")
	c := newController(t, store, profiles)
	require.NoError(t, c.Start(ctx))

	_, err := c.SignUp(ctx, "di@example.com", "secret1", ProfileFields{})
	require.NoError(t, err)
	profiles.release(<-profiles.started)
	c.Wait()

	st := c.State()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.Nil(t, st.Profile)
	require.False(t, st.ProfileLoading)
}

func TestProfileLoad_PanicIsRecovered(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := newController(t, store, panickingProfiles{})
	require.NoError(t, c.Start(ctx))

	_, err := c.SignUp(ctx, "ed@example.com", "secret1", ProfileFields{})
	require.NoError(t, err)
	c.Wait()

	st := c.State()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.False(t, st.ProfileLoading)
	require.Nil(t, st.Profile)
}

func TestSignIn_FailureReturnsErrorAndStaysAnonymous(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := newController(t, store, newGatedProfiles())
	require.NoError(t, c.Start(ctx))

	resp, err := c.SignIn(ctx, "nobody@example.com", "wrong-password")
	require.Nil(t, resp)
	require.ErrorIs(t, err, common.ErrAuthOperation)
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	st := c.State()
	require.Equal(t, StatusAnonymous, st.Status)
	require.False(t, st.Loading)
}

func TestSignOut_RemoteFailureStillClearsState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := records.NewService(store, logging.NewNop())
	c := newController(t, store, svc)
	require.NoError(t, c.Start(ctx))

	_, err := c.SignUp(ctx, "fy@example.com", "secret1", ProfileFields{})
	require.NoError(t, err)
	c.Wait()

	store.FailNext(memory.OpSignOut, common.ErrUnavailable)
	err = c.SignOut(ctx)
	require.ErrorIs(t, err, common.ErrAuthOperation)

	st := c.State()
	require.Equal(t, StatusAnonymous, st.Status)
	require.Nil(t, st.User)
	require.Nil(t, st.Profile)
}

func TestSignUp_SendsProfileMetadata(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := records.NewService(store, logging.NewNop())
	c := newController(t, store, svc)
	require.NoError(t, c.Start(ctx))

	resp, err := c.SignUp(ctx, "gi@example.com", "secret1", ProfileFields{FullName: "Gi", Company: "Acme"})
	require.NoError(t, err)
	require.Equal(t, "Gi", resp.User.Metadata["full_name"])
	require.Equal(t, "Acme", resp.User.Metadata["company"])

	c.Wait()
	require.Equal(t, "Acme", c.State().Profile["company"])

	_, err = c.SignUp(ctx, "gi@example.com", "secret1", ProfileFields{})
	require.ErrorIs(t, err, common.ErrAuthOperation)
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := newController(t, store, newGatedProfiles())

	require.NoError(t, c.ResetPassword(ctx, "unknown@example.com"))

	store.FailNext(memory.OpReset, common.ErrUnavailable)
	require.ErrorIs(t, c.ResetPassword(ctx, "x@example.com"), common.ErrAuthOperation)
}

func TestRefreshProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := records.NewService(store, logging.NewNop())
	c := newController(t, store, svc)
	require.NoError(t, c.Start(ctx))

	// anonymous: nothing happens
	c.RefreshProfile(ctx)
	require.False(t, c.State().ProfileLoading)

	_, err := c.SignUp(ctx, "hu@example.com", "secret1", ProfileFields{FullName: "Hu"})
	require.NoError(t, err)
	c.Wait()

	userID := c.State().UserID()
	_, err = svc.Update(ctx, common.CollectionProfiles, userID, models.Record{"full_name": "Hu Renamed"})
	require.NoError(t, err)

	c.RefreshProfile(ctx)
	c.Wait()
	require.Equal(t, "Hu Renamed", c.State().Profile["full_name"])
}

func TestClose_UnsubscribesAndCancelsLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	profiles := newGatedProfiles()
	c := New(store.Auth(), profiles, logging.NewNop())
	require.NoError(t, c.Start(ctx))

	_, err := c.SignUp(ctx, "io@example.com", "secret1", ProfileFields{})
	require.NoError(t, err)
	userID := <-profiles.started

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	profiles.release(userID)
	<-done

	require.Equal(t, 0, store.ListenerCount())
	require.ErrorIs(t, c.Start(ctx), ErrClosed)

	// events after Close are ignored
	require.NoError(t, store.SignOut(ctx))
	require.Equal(t, StatusAuthenticated, c.State().Status)
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "uninitialized", StatusUninitialized.String())
	require.Equal(t, "loading", StatusLoading.String())
	require.Equal(t, "authenticated", StatusAuthenticated.String())
	require.Equal(t, "anonymous", StatusAnonymous.String())
}
