package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	after   time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeRevoker struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (r *fakeRevoker) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return r.err
}

type harness struct {
	now       time.Time
	storage   *MemoryStorage
	notices   []Notice
	redirects []string
	timers    []*fakeTimer
	revoker   *fakeRevoker
	store     *Store
}

func newHarness(t *testing.T, storage Storage) *harness {
	t.Helper()
	h := &harness{
		now:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		revoker: &fakeRevoker{},
	}
	if storage == nil {
		h.storage = &MemoryStorage{}
		storage = h.storage
	}
	h.store = NewStore(Options{
		Storage:       storage,
		WarnThreshold: 5 * time.Minute,
		Notify:        func(n Notice) { h.notices = append(h.notices, n) },
		Redirect:      func(path string) { h.redirects = append(h.redirects, path) },
		Now:           func() time.Time { return h.now },
		AfterFunc: func(d time.Duration, f func()) Timer {
			timer := &fakeTimer{after: d, fire: f}
			h.timers = append(h.timers, timer)
			return timer
		},
	})
	h.store.SetRevoker(h.revoker)
	return h
}

func (h *harness) liveTimer() *fakeTimer {
	for i := len(h.timers) - 1; i >= 0; i-- {
		if !h.timers[i].stopped {
			return h.timers[i]
		}
	}
	return nil
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "admin-1",
		"role": "admin",
		"exp":  exp.Unix(),
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

func TestStartsLoading(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, StatusLoading, h.store.Status())
}

func TestInitWithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Init(context.Background())

	require.Equal(t, StatusLoggedOut, h.store.Status())
	require.Empty(t, h.notices)
	require.Empty(t, h.redirects)
}

func TestInitWithExpiredSessionLogsOutWithoutNetwork(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.storage.Save(Data{
		User:        User{ID: "admin-1", Role: "admin"},
		AccessToken: "stale",
		ExpiryTime:  h.now.Add(-time.Minute).UnixMilli(),
	}))

	h.store.Init(context.Background())

	require.Equal(t, StatusLoggedOut, h.store.Status())
	require.Empty(t, h.revoker.tokens)
	require.Equal(t, []Notice{{Level: NoticeInfo, Message: MsgExpired}}, h.notices)
	require.Equal(t, []string{LoginPath}, h.redirects)

	stored, err := h.storage.Load()
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestInitAdoptsSessionAndSchedulesWarning(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.storage.Save(Data{
		User:        User{ID: "admin-1", Role: "admin"},
		AccessToken: "token",
		ExpiryTime:  h.now.Add(15 * time.Minute).UnixMilli(),
	}))

	h.store.Init(context.Background())
	require.Equal(t, StatusLoggedIn, h.store.Status())

	timer := h.liveTimer()
	require.NotNil(t, timer)
	require.Equal(t, 10*time.Minute, timer.after)

	timer.fire()
	require.Equal(t, []Notice{{
		Level:   NoticeWarning,
		Message: "Your session will expire in 5 minutes. Please save your work.",
	}}, h.notices)
}

func TestNoWarningInsideThreshold(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.storage.Save(Data{AccessToken: "token", ExpiryTime: h.now.Add(4 * time.Minute).UnixMilli()}))

	h.store.Init(context.Background())
	require.Equal(t, StatusLoggedIn, h.store.Status())
	require.Nil(t, h.liveTimer())
}

func TestCheckExpiresIdleSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.store.Init(ctx)
	require.NoError(t, h.store.Login(User{ID: "admin-1", Role: "admin"}, accessToken(t, h.now.Add(15*time.Minute)), "refresh"))

	h.now = h.now.Add(14 * time.Minute)
	h.store.Check(ctx)
	require.Equal(t, StatusLoggedIn, h.store.Status())

	h.now = h.now.Add(time.Minute)
	h.store.Check(ctx)
	require.Equal(t, StatusLoggedOut, h.store.Status())
	require.Equal(t, MsgExpired, h.notices[len(h.notices)-1].Message)
	require.Nil(t, h.liveTimer())
}

func TestLoginUsesTokenExpiry(t *testing.T) {
	h := newHarness(t, nil)
	exp := h.now.Add(15 * time.Minute).Truncate(time.Second)

	require.NoError(t, h.store.Login(User{ID: "admin-1", Email: "admin@hco.org", Role: "admin"}, accessToken(t, exp), "refresh"))

	data, _, ok := h.store.Snapshot()
	require.True(t, ok)
	require.Equal(t, exp.UnixMilli(), data.ExpiryTime)

	stored, err := h.storage.Load()
	require.NoError(t, err)
	require.Equal(t, data, *stored)
}

func TestLoginRejectsTokenWithoutExpiry(t *testing.T) {
	h := newHarness(t, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)

	require.ErrorIs(t, h.store.Login(User{}, token, "refresh"), ErrNoExpiry)
	require.Error(t, h.store.Login(User{}, "garbage", "refresh"))
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	token := accessToken(t, h.now.Add(15*time.Minute))
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, token, "refresh"))

	h.store.Logout(ctx, "")
	h.store.Logout(ctx, "")

	require.Equal(t, StatusLoggedOut, h.store.Status())
	require.Equal(t, []string{token}, h.revoker.tokens)
	require.Equal(t, []Notice{{Level: NoticeInfo, Message: MsgLoggedOut}}, h.notices)
	require.Equal(t, []string{LoginPath, LoginPath}, h.redirects)
}

func TestLogoutSurvivesServerFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.revoker.err = errors.New("connection refused")
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, accessToken(t, h.now.Add(15*time.Minute)), "refresh"))

	h.store.Logout(context.Background(), "")

	require.Equal(t, StatusLoggedOut, h.store.Status())
	stored, err := h.storage.Load()
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestLogoutWinsOverLateRefresh(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, accessToken(t, h.now.Add(15*time.Minute)), "refresh"))
	_, gen, _ := h.store.Snapshot()

	h.store.Logout(context.Background(), "")

	err := h.store.UpdateTokens(gen, accessToken(t, h.now.Add(30*time.Minute)), "refresh-2")
	require.ErrorIs(t, err, ErrStale)
	require.Equal(t, StatusLoggedOut, h.store.Status())
	stored, err := h.storage.Load()
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestUpdateTokensRotatesPair(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, accessToken(t, h.now.Add(time.Minute)), "refresh"))
	_, gen, _ := h.store.Snapshot()

	next := h.now.Add(15 * time.Minute).Truncate(time.Second)
	require.NoError(t, h.store.UpdateTokens(gen, accessToken(t, next), "refresh-2"))

	data, sameGen, ok := h.store.Snapshot()
	require.True(t, ok)
	require.Equal(t, gen, sameGen)
	require.Equal(t, "refresh-2", data.RefreshToken)
	require.Equal(t, next.UnixMilli(), data.ExpiryTime)
	require.NotNil(t, h.liveTimer())
}

func TestSyncAdoptsPairRotatedElsewhere(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, accessToken(t, h.now.Add(time.Minute)), "refresh"))
	_, gen, _ := h.store.Snapshot()
	require.False(t, h.store.Sync())

	next := h.now.Add(15 * time.Minute).Truncate(time.Second)
	rotated := accessToken(t, next)
	require.NoError(t, h.storage.Save(Data{
		User:         User{ID: "admin-1"},
		AccessToken:  rotated,
		RefreshToken: "refresh-2",
		ExpiryTime:   next.UnixMilli(),
	}))

	require.True(t, h.store.Sync())
	data, sameGen, ok := h.store.Snapshot()
	require.True(t, ok)
	require.Equal(t, gen, sameGen)
	require.Equal(t, rotated, data.AccessToken)
	require.Equal(t, "refresh-2", data.RefreshToken)
}

func TestSyncIgnoresOtherUser(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Login(User{ID: "admin-1"}, accessToken(t, h.now.Add(time.Minute)), "refresh"))
	require.NoError(t, h.storage.Save(Data{User: User{ID: "admin-2"}, AccessToken: "other", RefreshToken: "refresh-x"}))

	require.False(t, h.store.Sync())
	data, _, _ := h.store.Snapshot()
	require.Equal(t, "refresh", data.RefreshToken)
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hco", "userData.json")
	fs := NewFileStorage(path)

	data, err := fs.Load()
	require.NoError(t, err)
	require.Nil(t, data)

	want := Data{User: User{ID: "admin-1", Role: "admin"}, AccessToken: "a", RefreshToken: "r", ExpiryTime: 1714557600000}
	require.NoError(t, fs.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, want, *got)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
}

func TestCorruptSessionFileIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userData.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	h := newHarness(t, NewFileStorage(path))
	h.store.Init(context.Background())

	require.Equal(t, StatusLoggedOut, h.store.Status())
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
