package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/ids"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/security"
)

var (
	ErrMissingCredentials  = apperr.New(apperr.KindValidation, "Please provide email and password")
	ErrInvalidCredentials  = apperr.New(apperr.KindCredentials, "Invalid email or password")
	ErrRefreshRequired     = apperr.New(apperr.KindValidation, "Refresh token is required")
	ErrInvalidRefreshToken = apperr.New(apperr.KindToken, "Invalid refresh token")
	ErrEmailTaken          = apperr.New(apperr.KindConflict, "A user with this email already exists")
)

// UserStore is the credential store as the auth flow needs it.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, id string, token string) error
	RotateRefreshToken(ctx context.Context, id string, current string, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}

type AuthService struct {
	users  UserStore
	tokens *security.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(users UserStore, tokens *security.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		log:    log,
	}
}

type AuthResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	User            models.User
}

// Login checks the credentials and starts a new session, replacing any
// refresh token the account held before.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			security.BurnPasswordCheck(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during login")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return AuthResult{}, ErrInvalidCredentials
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if security.IsLegacyHash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	pair, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during login")
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during login")
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	return resultFor(pair, user), nil
}

func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := security.HashPassword(password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("rehash password failed")
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("store upgraded password hash failed")
		return
	}
	s.log.Info().Str("user_id", userID).Msg("legacy password hash upgraded")
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// carry a valid signature and equal the stored one; the swap to the new
// token is atomic so a token can be redeemed at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthResult{}, ErrRefreshRequired
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during token refresh")
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		if user.RefreshToken != nil {
			// A well-signed but superseded token is being replayed; end the
			// session it may have been stolen from.
			if err := s.users.ClearRefreshToken(ctx, user.ID); err != nil {
				s.log.Error().Err(err).Str("user_id", user.ID).Msg("clear refresh token after mismatch failed")
			}
			s.log.Warn().Str("user_id", user.ID).Msg("refresh token mismatch, session revoked")
		}
		return AuthResult{}, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during token refresh")
	}

	swapped, err := s.users.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, apperr.KindInternal, "Server error during token refresh")
	}
	if !swapped {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	return resultFor(pair, user), nil
}

// Logout clears the stored refresh token. Logging out twice is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "Server error during logout")
	}
	s.log.Info().Str("user_id", userID).Msg("logout")
	return nil
}

// CurrentUser loads the account behind a verified access token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	return user.Public(), nil
}

// CreateUser registers an account. Used by the admin bootstrap command.
func (s *AuthService) CreateUser(ctx context.Context, email, password string, role models.UserRole) (models.User, error) {
	email = repository.NormalizeEmail(email)
	if !role.Valid() {
		return models.User{}, apperr.New(apperr.KindValidation, "Unknown role "+string(role))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user.Public(), nil
}

func resultFor(pair security.TokenPair, user models.User) AuthResult {
	return AuthResult{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		User:            user.Public(),
	}
}
