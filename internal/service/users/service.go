package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store repository.UserRepository
	cost  int
	token func() string
}

func New(store repository.UserRepository) *Service {
	return &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
		token: func() string { return uuid.NewString() },
	}
}

// Register creates a user with a bcrypt-hashed password.
//
// Returns:
//   - int64: the new user's ID.
//   - error: users.ErrInvalidInput if username or password is empty.
//   - error: users.ErrUsernameTaken if the username exists.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	const op = "service.users.Register"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.CreateUser(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s:%w", op, ErrUsernameTaken)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// Login checks the credentials and issues a fresh auth token, replacing
// any previous one.
//
// Returns:
//   - string: the auth token.
//   - error: users.ErrUnauthorized if the credentials do not match.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	const op = "service.users.Login"

	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s:%w", op, ErrUnauthorized)
		}
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	token := s.token()
	if err := s.store.SetAuthToken(ctx, u.ID, token); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return token, nil
}

// Logout clears the user's token.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	const op = "service.users.Logout"

	if err := s.store.SetAuthToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Authenticate resolves an auth token to its user.
//
// Returns:
//   - error: users.ErrUnauthorized if the token is empty or unknown.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	const op = "service.users.Authenticate"

	if token == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	u, err := s.store.UserByAuthToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}
