package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/repository"
)

// Session is the result of a successful login.
type Session struct {
	Token     string           `json:"token,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	User      model.PublicUser `json:"user"`
}

// userLockTimeout bounds how long an operation waits for another operation on
// the same username.
const userLockTimeout = 5 * time.Second

// AccountService handles registration, login and account records.
type AccountService struct {
	users         *repository.UserRepository
	creds         auth.Credentials
	tokens        *auth.Tokens
	userLock      *lock.KeyLock
	startingCoins int64
	now           func() time.Time
}

// NewAccountService creates a new AccountService instance.
// tokens may be nil, in which case Login issues no token.
func NewAccountService(
	users *repository.UserRepository,
	creds auth.Credentials,
	tokens *auth.Tokens,
	userLock *lock.KeyLock,
	startingCoins int64,
) *AccountService {
	return &AccountService{
		users:         users,
		creds:         creds,
		tokens:        tokens,
		userLock:      userLock,
		startingCoins: startingCoins,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser stores a new account with the starting balance, silently
// replacing any account of the same name.
func (s *AccountService) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	stored, err := s.creds.Hash(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, stored, s.startingCoins)
}

// GetUser retrieves a user by username.
func (s *AccountService) GetUser(ctx context.Context, username string) (*model.User, error) {
	return s.users.Get(ctx, username)
}

// SaveUser overwrites the stored record of user.
func (s *AccountService) SaveUser(ctx context.Context, user *model.User) error {
	return s.users.Save(ctx, user)
}

// CheckCredentials reports whether the user exists and the password matches.
func (s *AccountService) CheckCredentials(ctx context.Context, username, password string) (bool, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.creds.Matches(user.Password, password), nil
}

// Register creates an account for a username that is not yet taken.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	var user *model.User
	err := s.userLock.WithLockContext(ctx, username, userLockTimeout, func() error {
		exists, err := s.users.Exists(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return ErrUsernameTaken
		}
		user, err = s.CreateUser(ctx, username, password)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Int64("coins", user.Coins).Msg("User registered")
	return user, nil
}

// Login verifies the credentials, records the login time and issues a token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	ok, err := s.CheckCredentials(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to check credentials: %w", err)
	}
	if !ok {
		log.Debug().Str("username", username).Msg("Login rejected")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		u.LastLogin = s.now()
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	session := &Session{User: user.Public()}
	if s.tokens != nil {
		token, expires, err := s.tokens.Issue(username)
		if err != nil {
			return nil, err
		}
		session.Token = token
		session.ExpiresAt = &expires
	}

	log.Info().Str("username", username).Msg("User logged in")
	return session, nil
}
