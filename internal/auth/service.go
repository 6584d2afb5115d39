package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidPassword = errors.New("password is incorrect")
	ErrRefreshRejected = errors.New("invalid refresh token")
)

// UserStore is the persistence collaborator the service depends on.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, username, email, passwordHash, imageRef string) (User, error)
}

type Service struct {
	store  UserStore
	tokens *TokenService
}

func NewService(store UserStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

func (s *Service) Tokens() *TokenService { return s.tokens }

// TokenPair is an access/refresh pair minted together. Both tokens
// embed the same identity snapshot.
type TokenPair struct {
	Access  string
	Refresh string
}

func (s *Service) Signup(ctx context.Context, username, email, password, imageRef string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	user, err := s.store.Create(ctx, username, email, hash, imageRef)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return User{}, err
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login resolves the user by username when present, by email otherwise,
// verifies the presented password and mints a fresh token pair from a
// current identity snapshot.
func (s *Service) Login(ctx context.Context, username, email, password string) (User, TokenPair, error) {
	var (
		user User
		err  error
	)
	if username != "" {
		user, err = s.store.GetByUsername(ctx, username)
	} else {
		user, err = s.store.GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, TokenPair{}, err
		}
		return User{}, TokenPair{}, fmt.Errorf("resolve user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("verify password for %q: %w", user.Username, err)
	}
	if !ok {
		return User{}, TokenPair{}, ErrInvalidPassword
	}

	identity := user.Identity()
	access, err := s.tokens.IssueAccess(identity)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(identity)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	return user, TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token from a refresh token. The identity
// comes from the refresh token's payload, not a fresh storage read: a
// refreshed session reflects who logged in, not current user state.
func (s *Service) Refresh(refreshToken string) (string, error) {
	identity, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrRefreshRejected
	}

	return s.tokens.IssueAccess(identity)
}
