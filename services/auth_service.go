package services

import (
	"fmt"

	"mitm-lab/auth"
	"mitm-lab/errors"
	"mitm-lab/repositories"
)

type IAuthService interface {
	Register(username, password string) error
	Login(username, password string) (string, error)
	Resolve(token string) (string, error)
	Logout(token string) error
}

type AuthService struct {
	accounts repositories.IAccountRepository
	sessions repositories.ISessionRepository
}

func NewAuthService(accounts repositories.IAccountRepository,
	sessions repositories.ISessionRepository) IAuthService {
	return &AuthService{accounts: accounts, sessions: sessions}
}

// Register validates the credentials and persists the account with the
// password digest. Hashing happens here so the repository never sees a
// plain password.
func (s *AuthService) Register(username, password string) error {
	valReq := auth.RegisterRequest{Username: username, Password: password}
	if err := auth.ValidateRegister(valReq); err != nil {
		return err
	}
	// Propagates ErrAccountExists when the username is taken
	return s.accounts.Create(username, auth.HashPassword(password))
}

// Login opens a session and returns its token. Unknown usernames and wrong
// passwords map to the same error so callers cannot probe which accounts
// exist.
func (s *AuthService) Login(username, password string) (string, error) {
	account, err := s.accounts.Get(username)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, account.PasswordHash) {
		return "", errors.ErrInvalidCredentials
	}

	token := auth.NewSessionToken()
	if err := s.sessions.Put(token, username); err != nil {
		return "", fmt.Errorf("session creation failed: %w", err)
	}
	return token, nil
}

// Resolve maps a session token back to its owner.
func (s *AuthService) Resolve(token string) (string, error) {
	username, err := s.sessions.Resolve(token)
	if err != nil {
		return "", errors.ErrUnauthorized
	}
	return username, nil
}

// Logout revokes the session. Revoking an unknown token is a no-op,
// never an error.
func (s *AuthService) Logout(token string) error {
	return s.sessions.Delete(token)
}
