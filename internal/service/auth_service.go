package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/lock"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 255
	minPasswordLength = 8
)

// AuthConfig configures the AuthService.
type AuthConfig struct {
	BcryptCost int
	SessionTTL time.Duration
}

// AuthService handles registration, login and session resolution.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      *auth.TokenManager
	config      AuthConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokens *auth.TokenManager,
	config AuthConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AuthService {
	if config.BcryptCost < bcrypt.MinCost {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		config:      config,
		metrics:     m,
		logger:      logger.With().Str("service", "auth").Logger(),
	}
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Username string
	Password string
	IsAdmin  bool
}

// Register creates a user account and establishes a session for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (result *AuthResult, err error) {
	defer func() { s.metrics.ObserveAuth("register", err) }()

	input.Username = strings.TrimSpace(input.Username)
	if err := validateCredentials(input.Username, input.Password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: username '%s'", domain.ErrDuplicateHandle, input.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", domain.ErrUnavailable)
	}

	user := domain.NewUser(input.Username, string(hash))
	user.IsAdmin = input.IsAdmin

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrDuplicateHandle) {
			s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		}
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Bool("is_admin", user.IsAdmin).
		Msg("user created")

	return s.startSession(ctx, user)
}

// Authenticate verifies credentials and establishes a session.
// An unknown username and a wrong password produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (result *AuthResult, err error) {
	defer func() { s.metrics.ObserveAuth("login", err) }()

	username = strings.TrimSpace(username)
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("username", username).Msg("user not found during authentication")
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("user authenticated")

	return s.startSession(ctx, user)
}

// CurrentPrincipal resolves a session token to its user.
// Any bad, expired or revoked token yields domain.ErrUnauthenticated.
func (s *AuthService) CurrentPrincipal(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now().UTC()) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID.String()).Msg("failed to delete expired session")
		}
		return nil, domain.ErrSessionNotFound
	}
	if claims.Subject != session.UserID.String() {
		return nil, domain.ErrSessionNotFound
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the session behind token. Unknown or malformed tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil
	}

	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to delete session")
		return err
	}

	s.logger.Info().Str("session_id", sessionID.String()).Str("user_id", claims.Subject).Msg("user logged out")
	return nil
}

// SweepSessions deletes every expired session.
func (s *AuthService) SweepSessions(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sweep sessions")
		return 0, err
	}
	s.metrics.AddSessionsSwept(n)
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("expired sessions swept")
	}
	return n, nil
}

// RunSessionSweeper sweeps expired sessions every interval until ctx is done.
// With a shared locker only one instance sweeps per tick.
func (s *AuthService) RunSessionSweeper(ctx context.Context, locker lock.Locker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx, locker, interval)
		}
	}
}

func (s *AuthService) sweepOnce(ctx context.Context, locker lock.Locker, interval time.Duration) {
	l, err := lock.Obtain(ctx, locker, lock.Keys.SessionSweep(), interval, lock.RetryPolicy{})
	if err != nil {
		if !errors.Is(err, lock.ErrNotObtained) {
			s.logger.Warn().Err(err).Msg("failed to obtain sweep lock")
		}
		return
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, lock.ErrNotHeld) {
			s.logger.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	_, _ = s.SweepSessions(ctx)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	session := domain.NewSession(user.ID, s.config.SessionTTL)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create session")
		return nil, err
	}

	token, err := s.tokens.Generate(session)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to sign session token")
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func validateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return domain.ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return domain.ErrInvalidPassword
	}
	return nil
}
