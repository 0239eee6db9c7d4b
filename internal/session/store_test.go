package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/mocks"
	mockauth "github.com/target/municipal-portal/internal/mocks/auth"
)

var ana = domainauth.Identity{ID: "u-ana", Username: "ana", Email: "ana@example.com", Role: domainauth.RoleUser, Active: true}

type storeFixture struct {
	boundary *mockauth.FakeBoundary
	cache    *mockauth.MemoryIdentityCache
	sessions *mockauth.MemorySessionStore
	store    *Store
}

func newFixture(t *testing.T, token string) *storeFixture {
	t.Helper()
	f := &storeFixture{
		boundary: mockauth.NewFakeBoundary(),
		cache:    mockauth.NewMemoryIdentityCache(),
		sessions: mockauth.NewMemorySessionStore(),
	}
	f.store = NewStore(StoreOptions{
		ID:       "sess-1",
		Boundary: f.boundary,
		Cache:    f.cache,
		Persist:  f.sessions,
		Token:    token,
	})
	return f
}

func TestStore_StartsUnresolved(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, domainauth.StateUnresolved, f.store.State().Kind)
	assert.False(t, f.store.IsAuthenticated())
	assert.False(t, f.store.HasRole(domainauth.RoleUser))
}

func TestStore_InitializeWithoutToken(t *testing.T) {
	f := newFixture(t, "")
	f.store.Initialize(context.Background())
	assert.Equal(t, domainauth.Anonymous(), f.store.State())
}

func TestStore_InitializeIsIdempotent(t *testing.T) {
	calls := 0
	f := newFixture(t, "tok")
	f.boundary.WhoAmIFunc = func(context.Context, string) (domainauth.Identity, error) {
		calls++
		return ana, nil
	}
	ctx := context.Background()

	f.store.Initialize(ctx)
	first := f.store.State()
	f.store.Initialize(ctx)

	assert.Equal(t, first, f.store.State())
	assert.Equal(t, domainauth.Authenticated(ana), first)
	assert.Equal(t, 1, calls)
	assert.True(t, f.cache.Has("identity:sess-1"), "definitive answer refreshes the cache")
}

func TestStore_InitializeFallsBackToCacheOnNetworkFailure(t *testing.T) {
	f := newFixture(t, "tok")
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "identity:sess-1", ana, time.Hour))
	f.boundary.WhoAmIFunc = func(context.Context, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, apperrors.NetworkFailure(errors.New("connection refused"))
	}

	f.store.Initialize(ctx)
	assert.Equal(t, domainauth.Authenticated(ana), f.store.State())
}

func TestStore_InitializeNetworkFailureWithoutCache(t *testing.T) {
	f := newFixture(t, "tok")
	f.boundary.WhoAmIFunc = func(context.Context, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, apperrors.NetworkFailure(errors.New("timeout"))
	}

	f.store.Initialize(context.Background())
	assert.Equal(t, domainauth.Anonymous(), f.store.State())
}

func TestStore_DefinitiveAnswerBeatsCache(t *testing.T) {
	f := newFixture(t, "revoked")
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "identity:sess-1", ana, time.Hour))

	f.store.Initialize(ctx)

	assert.Equal(t, domainauth.Anonymous(), f.store.State())
	assert.False(t, f.cache.Has("identity:sess-1"), "unauthorized discards the cache")
	assert.Empty(t, f.store.Token())
}

func TestStore_LoginSuccess(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.store.Initialize(ctx)

	out := f.store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"})

	assert.True(t, out.OK)
	assert.Equal(t, "Login realizado com sucesso", out.Message)
	assert.True(t, f.store.IsAuthenticated())
	assert.True(t, f.store.HasRole(domainauth.RoleUser))
	assert.False(t, f.store.HasRole(domainauth.RoleAdmin))
	assert.True(t, f.cache.Has("identity:sess-1"))

	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, f.store.Token(), sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestStore_LoginFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.store.Initialize(ctx)

	out := f.store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "wrong"})
	assert.False(t, out.OK)
	assert.Equal(t, "Usuário ou senha incorretos", out.Message)
	assert.Equal(t, domainauth.Anonymous(), f.store.State())

	f.boundary.LoginFunc = func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
		return domainauth.LoginResult{}, apperrors.NetworkFailure(errors.New("refused"))
	}
	out = f.store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"})
	assert.False(t, out.OK)
	assert.Equal(t, "Não foi possível conectar ao servidor", out.Message)
	assert.Equal(t, domainauth.Anonymous(), f.store.State())
}

func TestStore_LogoutSurvivesBackendFailure(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.True(t, f.store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"}).OK)

	f.boundary.LogoutFunc = func(context.Context, string) error {
		return apperrors.NetworkFailure(errors.New("backend down"))
	}
	f.store.Logout(ctx)

	assert.Equal(t, domainauth.Anonymous(), f.store.State())
	assert.False(t, f.cache.Has("identity:sess-1"))
	_, err := f.sessions.Get(ctx, "sess-1")
	assert.Error(t, err)
	assert.Empty(t, f.store.Token())
}

func TestStore_LogoutDiscardsInFlightLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	boundary := mocks.NewMockAuthBoundary(ctrl)
	cache := mockauth.NewMemoryIdentityCache()
	store := NewStore(StoreOptions{ID: "sess-race", Boundary: boundary, Cache: cache})
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	boundary.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
			close(started)
			<-release
			return domainauth.LoginResult{Identity: ana, Token: "late-token"}, nil
		})
	// The superseded token is revoked; the logout itself has no token to send.
	boundary.EXPECT().Logout(gomock.Any(), "late-token").Return(nil)

	var wg sync.WaitGroup
	var out domainauth.Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		out = store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "x"})
	}()

	<-started
	store.Logout(ctx)
	close(release)
	wg.Wait()

	assert.False(t, out.OK)
	assert.Equal(t, domainauth.Anonymous(), store.State())
	assert.Empty(t, store.Token())
	assert.False(t, cache.Has("identity:sess-race"))
}

func TestStore_LatestLoginWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	boundary := mocks.NewMockAuthBoundary(ctrl)
	store := NewStore(StoreOptions{ID: "sess-two", Boundary: boundary})
	ctx := context.Background()
	admin := domainauth.Identity{ID: "u-admin", Role: domainauth.RoleAdmin}

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	gomock.InOrder(
		boundary.EXPECT().Login(gomock.Any(), domainauth.Credentials{Username: "ana"}).DoAndReturn(
			func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
				close(firstStarted)
				<-releaseFirst
				return domainauth.LoginResult{Identity: ana, Token: "t-ana"}, nil
			}),
		boundary.EXPECT().Login(gomock.Any(), domainauth.Credentials{Username: "admin"}).
			Return(domainauth.LoginResult{Identity: admin, Token: "t-admin"}, nil),
	)
	boundary.EXPECT().Logout(gomock.Any(), "t-ana").Return(nil)

	done := make(chan domainauth.Outcome)
	go func() { done <- store.Login(ctx, domainauth.Credentials{Username: "ana"}) }()
	<-firstStarted

	second := store.Login(ctx, domainauth.Credentials{Username: "admin"})
	close(releaseFirst)
	first := <-done

	assert.True(t, second.OK)
	assert.False(t, first.OK)
	assert.Equal(t, domainauth.Authenticated(admin), store.State())
	assert.Equal(t, "t-admin", store.Token())
}

func TestStore_Invalidate(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.True(t, f.store.Login(ctx, domainauth.Credentials{Username: "admin", Password: "admin123"}).OK)

	f.store.Invalidate(ctx)

	assert.Equal(t, domainauth.Anonymous(), f.store.State())
	assert.False(t, f.cache.Has("identity:sess-1"))
	assert.Empty(t, f.boundary.LoggedOut(), "invalidate does not call the backend")
}

func TestStore_Recheck(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.True(t, f.store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"}).OK)

	f.boundary.Revoke(f.store.Token())
	f.store.Recheck(ctx)

	assert.Equal(t, domainauth.Anonymous(), f.store.State())
}

func TestStore_ConcurrentInitializeSharesOneCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	boundary := mocks.NewMockAuthBoundary(ctrl)
	store := NewStore(StoreOptions{ID: "sess-c", Boundary: boundary, Token: "tok"})

	release := make(chan struct{})
	boundary.EXPECT().WhoAmI(gomock.Any(), "tok").DoAndReturn(
		func(context.Context, string) (domainauth.Identity, error) {
			<-release
			return ana, nil
		}).Times(1)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Initialize(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, domainauth.Authenticated(ana), store.State())
}

func TestStore_DefinitiveErrorsEndSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "inactive user", err: apperrors.Validation("Inactive user")},
		{name: "user deleted", err: apperrors.NotFound("User not found")},
		{name: "backend bug", err: apperrors.Internal("Internal Server Error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "tok")
			ctx := context.Background()
			require.NoError(t, f.cache.Set(ctx, "identity:sess-1", ana, time.Hour))
			f.boundary.WhoAmIFunc = func(context.Context, string) (domainauth.Identity, error) {
				return domainauth.Identity{}, tt.err
			}

			f.store.Initialize(ctx)

			assert.Equal(t, domainauth.Anonymous(), f.store.State())
			assert.False(t, f.cache.Has("identity:sess-1"))
			assert.Empty(t, f.store.Token())
		})
	}
}

func TestStore_FailedLoginDoesNotStallInitialize(t *testing.T) {
	ctrl := gomock.NewController(t)
	boundary := mocks.NewMockAuthBoundary(ctrl)
	store := NewStore(StoreOptions{ID: "sess-f", Boundary: boundary, Token: "tok"})
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	boundary.EXPECT().WhoAmI(gomock.Any(), "tok").DoAndReturn(
		func(context.Context, string) (domainauth.Identity, error) {
			close(started)
			<-release
			return ana, nil
		}).Times(1)
	boundary.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(domainauth.LoginResult{}, apperrors.Unauthorized("Incorrect username or password"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Initialize(ctx)
	}()
	<-started

	out := store.Login(ctx, domainauth.Credentials{Username: "ana", Password: "wrong"})
	close(release)
	<-done

	assert.False(t, out.OK)
	assert.Equal(t, domainauth.Authenticated(ana), store.State())
}

func TestStore_RecheckDuringInitializeSettles(t *testing.T) {
	ctrl := gomock.NewController(t)
	boundary := mocks.NewMockAuthBoundary(ctrl)
	cache := mockauth.NewMemoryIdentityCache()
	store := NewStore(StoreOptions{ID: "sess-r", Boundary: boundary, Cache: cache, Token: "tok"})
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "identity:sess-r", ana, time.Hour))

	release := make(chan struct{})
	gomock.InOrder(
		boundary.EXPECT().WhoAmI(gomock.Any(), "tok").DoAndReturn(
			func(context.Context, string) (domainauth.Identity, error) {
				<-release
				return ana, nil
			}),
		boundary.EXPECT().WhoAmI(gomock.Any(), "tok").
			Return(domainauth.Identity{}, apperrors.Unauthorized("token revoked")),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.Initialize(ctx)
	}()
	// The cached identity shows while the first check is in flight.
	require.Eventually(t, store.IsAuthenticated, time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		store.Recheck(ctx)
	}()
	require.Eventually(t, func() bool {
		return store.State().Kind == domainauth.StateUnresolved
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, domainauth.Anonymous(), store.State())
}
