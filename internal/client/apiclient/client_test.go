package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/client/session"
	"humanityclub/site/internal/config"
)

func mint(t *testing.T, label string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    "admin-1",
		"label": label,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

// fakeAPI accepts exactly one access token at a time and rotates it on
// refresh.
type fakeAPI struct {
	t *testing.T

	mu        sync.Mutex
	access    string
	refresh   string
	rotations int

	refreshCalls  atomic.Int32
	refreshGate   chan struct{}
	logoutTokens  []string
	rejectRefresh bool
	alwaysExpired bool
}

func (f *fakeAPI) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) unauthorized(w http.ResponseWriter, msg string) {
	f.write(w, http.StatusUnauthorized, map[string]any{"success": false, "kind": "token", "message": msg})
}

func (f *fakeAPI) bearerOK(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.alwaysExpired && r.Header.Get("Authorization") == "Bearer "+f.access
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "right-password" {
			f.write(w, http.StatusUnauthorized, map[string]any{"success": false, "kind": "credentials", "message": "Invalid email or password"})
			return
		}
		f.mu.Lock()
		f.access, f.refresh = mint(f.t, "login-access"), "refresh-0"
		access, refresh := f.access, f.refresh
		f.mu.Unlock()
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"accessToken": access, "refreshToken": refresh,
			"user": map[string]string{"id": "admin-1", "email": body["email"], "role": "admin"},
		}})
	})
	mux.HandleFunc("/api/v1/admin/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.refreshGate != nil {
			<-f.refreshGate
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejectRefresh || body["refreshToken"] != f.refresh {
			f.unauthorized(w, "Invalid refresh token")
			return
		}
		f.rotations++
		f.access = mint(f.t, fmt.Sprintf("access-%d", f.rotations))
		f.refresh = fmt.Sprintf("refresh-%d", f.rotations)
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"accessToken": f.access, "refreshToken": f.refresh,
		}})
	})
	mux.HandleFunc("/api/v1/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logoutTokens = append(f.logoutTokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		f.mu.Unlock()
		f.write(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
	})
	mux.HandleFunc("/api/v1/admin/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.bearerOK(r) {
			f.unauthorized(w, "Token expired")
			return
		}
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user": map[string]string{"id": "admin-1", "email": "admin@hco.org", "role": "admin"},
		}})
	})
	mux.HandleFunc("/api/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]string{{"id": "p1", "title": "Ahaar"}}})
	})
	mux.HandleFunc("/api/v1/contact/send", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusTooManyRequests, map[string]any{"success": false, "kind": "rate_limited", "message": "Too many messages sent"})
	})
	mux.HandleFunc("/api/v1/donation-details", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusInternalServerError, map[string]any{"success": false, "kind": "internal", "message": "Error fetching donation details", "detail": "pq: boom"})
	})
	return mux
}

type clientHarness struct {
	api     *fakeAPI
	server  *httptest.Server
	storage *session.MemoryStorage
	store   *session.Store
	client  *Client
	notices []session.Notice
}

func newClientHarness(t *testing.T, environment string) *clientHarness {
	t.Helper()
	h := &clientHarness{api: &fakeAPI{t: t}, storage: &session.MemoryStorage{}}
	h.server = httptest.NewServer(h.api.handler())
	t.Cleanup(h.server.Close)

	var mu sync.Mutex
	h.store = session.NewStore(session.Options{
		Storage: h.storage,
		Notify:  func(n session.Notice) {
			mu.Lock()
			defer mu.Unlock()
			h.notices = append(h.notices, n)
		},
		AfterFunc: func(time.Duration, func()) session.Timer { return stopped{} },
	})
	h.store.Init(context.Background())

	h.client = New(&config.ClientConfig{
		Environment: environment,
		APIBaseURL:  h.server.URL + "/api/v1/",
		Timeout:     5 * time.Second,
	}, h.store, zerolog.Nop())
	return h
}

type stopped struct{}

func (stopped) Stop() bool { return true }

func (h *clientHarness) login(t *testing.T) {
	t.Helper()
	user, err := h.client.Login(context.Background(), "admin@hco.org", "right-password")
	require.NoError(t, err)
	require.Equal(t, "admin", user.Role)
}

// expireAccess makes the server forget the client's current access token.
func (h *clientHarness) expireAccess() {
	h.api.mu.Lock()
	h.api.access = "rotated-elsewhere"
	h.api.mu.Unlock()
}

func TestLoginStoresSession(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)

	data, _, ok := h.store.Snapshot()
	require.True(t, ok)
	require.Equal(t, "refresh-0", data.RefreshToken)
	require.Equal(t, session.StatusLoggedIn, h.store.Status())
}

func TestLoginFailureKeepsLoggedOut(t *testing.T) {
	h := newClientHarness(t, "development")

	_, err := h.client.Login(context.Background(), "admin@hco.org", "wrong")
	require.True(t, apperr.Is(err, apperr.KindCredentials))
	require.Equal(t, "Invalid email or password", err.Error())
	require.Equal(t, session.StatusLoggedOut, h.store.Status())
	require.Zero(t, h.api.refreshCalls.Load())
}

func TestPublicCallWithoutSession(t *testing.T) {
	h := newClientHarness(t, "development")

	projects, err := h.client.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestExpiredAccessIsRefreshedAndRetried(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.expireAccess()

	user, err := h.client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "admin@hco.org", user.Email)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())

	data, _, _ := h.store.Snapshot()
	require.Equal(t, "refresh-1", data.RefreshToken)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.expireAccess()

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.client.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
}

func TestCancelledCallerDoesNotAbortSharedRefresh(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.expireAccess()
	gate := make(chan struct{})
	h.api.refreshGate = gate

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.client.Me(first)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return h.api.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, err := h.client.Me(context.Background())
		secondErr <- err
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate)
	require.NoError(t, <-secondErr)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, session.StatusLoggedIn, h.store.Status())

	data, _, _ := h.store.Snapshot()
	require.Equal(t, "refresh-1", data.RefreshToken)
}

func TestRefreshAdoptsPairRotatedByAnotherProcess(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	before, _, _ := h.store.Snapshot()

	// A second console sharing the session file refreshes first.
	resp, err := http.Post(h.server.URL+"/api/v1/admin/refresh-token", "application/json",
		strings.NewReader(`{"refreshToken":"refresh-0"}`))
	require.NoError(t, err)
	var out struct {
		Data authPayload `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NoError(t, resp.Body.Close())
	rotated := before
	rotated.AccessToken, rotated.RefreshToken = out.Data.AccessToken, out.Data.RefreshToken
	require.NoError(t, h.storage.Save(rotated))

	user, err := h.client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "admin@hco.org", user.Email)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, session.StatusLoggedIn, h.store.Status())

	data, _, _ := h.store.Snapshot()
	require.Equal(t, "refresh-1", data.RefreshToken)
}

func TestRejectedRefreshForcesLogout(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.expireAccess()
	h.api.mu.Lock()
	h.api.rejectRefresh = true
	h.api.mu.Unlock()

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	require.Equal(t, session.StatusLoggedOut, h.store.Status())
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
	require.Equal(t, session.MsgExpired, h.notices[len(h.notices)-1].Message)
}

func TestRetriesOnlyOnce(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.api.mu.Lock()
	h.api.alwaysExpired = true
	h.api.mu.Unlock()

	_, err := h.client.Me(context.Background())
	require.True(t, apperr.Is(err, apperr.KindToken))
	require.Equal(t, "Token expired", err.Error())
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
}

func TestLogoutRevokesOnServer(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	data, _, _ := h.store.Snapshot()

	h.client.Logout(context.Background())
	h.client.Logout(context.Background())

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	require.Equal(t, []string{data.AccessToken}, h.api.logoutTokens)
	require.Equal(t, session.StatusLoggedOut, h.store.Status())
	require.Zero(t, h.api.refreshCalls.Load())
}

func TestNetworkErrorIsTransport(t *testing.T) {
	h := newClientHarness(t, "development")
	h.login(t)
	h.server.Close()

	_, err := h.client.Me(context.Background())
	require.True(t, apperr.Is(err, apperr.KindTransport))
	require.Equal(t, MsgConnection, err.(*apperr.Error).Message)
	require.Equal(t, session.StatusLoggedIn, h.store.Status())
}

func TestRateLimitedMessage(t *testing.T) {
	h := newClientHarness(t, "development")

	err := h.client.SendContact(context.Background(), "Asha", "asha@example.com", "Hello")
	require.True(t, apperr.Is(err, apperr.KindRateLimited))
	require.Equal(t, MsgRateLimited, err.Error())
}

func TestServerErrorMessageByEnvironment(t *testing.T) {
	h := newClientHarness(t, "development")
	_, err := h.client.Donation(context.Background())
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, "Error fetching donation details", appErr.Message)
	require.Equal(t, "pq: boom", appErr.Detail)

	h = newClientHarness(t, "production")
	_, err = h.client.Donation(context.Background())
	require.Equal(t, MsgServerError, err.Error())
}
