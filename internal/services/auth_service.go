package services

import (
	"errors"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/storage"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthServiceProvider defines the interface for authentication services.
type AuthServiceProvider interface {
	Authenticate(email, password string) (*models.User, error)
}

// AuthService verifies user credentials against storage.
type AuthService struct {
	store storage.Storage
}

// NewAuthService creates a new AuthService.
func NewAuthService(store storage.Storage) *AuthService {
	return &AuthService{store: store}
}

// Authenticate verifies a user's credentials. Every user registered under
// email is tried, oldest first.
func (s *AuthService) Authenticate(email, password string) (*models.User, error) {
	store, end := storage.Begin(s.store)
	defer end()

	users, err := store.All(models.KindUser)
	if err != nil {
		return nil, err
	}
	for _, e := range sorted(users) {
		u, ok := e.(*models.User)
		if !ok || u.Email != email {
			continue
		}
		if u.CheckPassword(password) {
			return u, nil
		}
	}
	return nil, ErrInvalidCredentials
}
