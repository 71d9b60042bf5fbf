// Package session owns the admin console's login state: the persisted
// session object, its expiry enforcement and the logout teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const LoginPath = "/admin/login"

const (
	MsgExpired   = "Session expired. Please login again."
	MsgLoggedOut = "You have been logged out."
)

var (
	// ErrStale is returned when tokens arrive for a session that has since
	// been logged out or replaced.
	ErrStale    = errors.New("session changed")
	ErrNoExpiry = errors.New("token carries no expiry")
)

type Status int

const (
	StatusLoading Status = iota
	StatusLoggedOut
	StatusLoggedIn
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoggedOut:
		return "logged-out"
	default:
		return "logged-in"
	}
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Data is the serialized session. ExpiryTime is milliseconds since epoch.
type Data struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiryTime   int64  `json:"expiryTime"`
}

func (d Data) Expiry() time.Time {
	return time.UnixMilli(d.ExpiryTime)
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

type Notice struct {
	Level   NoticeLevel
	Message string
}

// Revoker ends the server side of a session.
type Revoker interface {
	Revoke(ctx context.Context, accessToken string) error
}

type Timer interface {
	Stop() bool
}

type Options struct {
	Storage       Storage
	CheckInterval time.Duration
	WarnThreshold time.Duration
	Notify        func(Notice)
	Redirect      func(path string)
	Log           zerolog.Logger

	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
}

type Store struct {
	mu      sync.Mutex
	opts    Options
	revoker Revoker

	status  Status
	current *Data
	gen     uint64
	warning Timer
}

func NewStore(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.WarnThreshold <= 0 {
		opts.WarnThreshold = 5 * time.Minute
	}
	if opts.Notify == nil {
		opts.Notify = func(Notice) {}
	}
	if opts.Redirect == nil {
		opts.Redirect = func(string) {}
	}
	if opts.Storage == nil {
		opts.Storage = &MemoryStorage{}
	}
	return &Store{opts: opts, status: StatusLoading}
}

// SetRevoker installs the server logout call used by Logout.
func (s *Store) SetRevoker(r Revoker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoker = r
}

// ExpiryFromToken reads the exp claim of an access token without verifying
// it; the server remains the authority on validity.
func ExpiryFromToken(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Init adopts the persisted session. An expired one is torn down without
// contacting the server.
func (s *Store) Init(ctx context.Context) {
	data, err := s.opts.Storage.Load()
	if err != nil {
		s.opts.Log.Warn().Err(err).Msg("discarding unreadable session")
		_ = s.opts.Storage.Clear()
		data = nil
	}

	s.mu.Lock()
	if data == nil {
		s.status = StatusLoggedOut
		s.mu.Unlock()
		return
	}
	s.current = data
	s.status = StatusLoggedIn
	s.gen++
	s.mu.Unlock()

	s.Check(ctx)
}

// Check enforces expiry and re-arms the warning timer.
func (s *Store) Check(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	if !s.opts.Now().Before(s.current.Expiry()) {
		s.mu.Unlock()
		s.expire(ctx)
		return
	}
	s.scheduleWarningLocked()
	s.mu.Unlock()
}

// Run re-checks expiry every CheckInterval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Login adopts a fresh session. The expiry comes from the access token.
func (s *Store) Login(user User, accessToken, refreshToken string) error {
	expiry, err := ExpiryFromToken(accessToken)
	if err != nil {
		return err
	}
	data := Data{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiryTime:   expiry.UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.opts.Storage.Save(data); err != nil {
		return err
	}
	s.current = &data
	s.status = StatusLoggedIn
	s.gen++
	s.scheduleWarningLocked()
	return nil
}

// UpdateTokens stores a refreshed pair, but only if the session it was
// requested for is still current.
func (s *Store) UpdateTokens(gen uint64, accessToken, refreshToken string) error {
	expiry, err := ExpiryFromToken(accessToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || gen != s.gen {
		return ErrStale
	}
	data := *s.current
	data.AccessToken = accessToken
	data.RefreshToken = refreshToken
	data.ExpiryTime = expiry.UnixMilli()

	if err := s.opts.Storage.Save(data); err != nil {
		return err
	}
	s.current = &data
	s.scheduleWarningLocked()
	return nil
}

// Sync adopts a token pair that another process rotated into storage for
// the same user. It reports whether the in-memory pair changed.
func (s *Store) Sync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	stored, err := s.opts.Storage.Load()
	if err != nil || stored == nil {
		return false
	}
	if stored.User.ID != s.current.User.ID || stored.RefreshToken == s.current.RefreshToken {
		return false
	}
	s.current = stored
	s.scheduleWarningLocked()
	return true
}

// Logout tears the session down and sends the user to the login view. The
// server is told on a best-effort basis; calling it while logged out only
// redirects.
func (s *Store) Logout(ctx context.Context, message string) {
	if message == "" {
		message = MsgLoggedOut
	}
	s.teardown(ctx, message, true)
}

func (s *Store) expire(ctx context.Context) {
	s.teardown(ctx, MsgExpired, false)
}

func (s *Store) teardown(ctx context.Context, message string, revoke bool) {
	s.mu.Lock()
	previous := s.current
	revoker := s.revoker
	s.current = nil
	s.status = StatusLoggedOut
	s.gen++
	s.stopWarningLocked()
	if err := s.opts.Storage.Clear(); err != nil {
		s.opts.Log.Warn().Err(err).Msg("clear session storage")
	}
	s.mu.Unlock()

	if previous != nil {
		if revoke && revoker != nil {
			if err := revoker.Revoke(ctx, previous.AccessToken); err != nil {
				s.opts.Log.Debug().Err(err).Msg("server logout failed")
			}
		}
		s.opts.Notify(Notice{Level: NoticeInfo, Message: message})
	}
	s.opts.Redirect(LoginPath)
}

func (s *Store) scheduleWarningLocked() {
	s.stopWarningLocked()

	remaining := s.current.Expiry().Sub(s.opts.Now())
	if remaining <= s.opts.WarnThreshold {
		return
	}

	gen := s.gen
	minutes := int(s.opts.WarnThreshold.Round(time.Minute) / time.Minute)
	s.warning = s.opts.AfterFunc(remaining-s.opts.WarnThreshold, func() {
		s.mu.Lock()
		live := s.current != nil && s.gen == gen
		s.mu.Unlock()
		if live {
			s.opts.Notify(Notice{
				Level:   NoticeWarning,
				Message: fmt.Sprintf("Your session will expire in %d minutes. Please save your work.", minutes),
			})
		}
	})
}

func (s *Store) stopWarningLocked() {
	if s.warning != nil {
		s.warning.Stop()
		s.warning = nil
	}
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns the current session and its generation.
func (s *Store) Snapshot() (Data, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Data{}, s.gen, false
	}
	return *s.current, s.gen, true
}

func (s *Store) User() (User, bool) {
	data, _, ok := s.Snapshot()
	return data.User, ok
}
