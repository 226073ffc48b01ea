//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"

	"mitm-lab/domain"
	"mitm-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

const sessionPrefix = "session:"

type ISessionRepository interface {
	Put(token, username string) error
	Resolve(token string) (string, error)
	Delete(token string) error
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) ISessionRepository {
	return &SessionRepository{db: db}
}

// Put stores the token-to-username binding under "session:{token}".
func (r *SessionRepository) Put(token, username string) error {
	session := domain.Session{Token: token, Username: username}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionPrefix+token), data)
	})
}

// Resolve returns the username owning the token, or ErrSessionNotFound.
func (r *SessionRepository) Resolve(token string) (string, error) {
	var session domain.Session

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + token))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", errors.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return session.Username, nil
}

// Delete revokes the token. Deleting an absent token is a no-op: logout is
// idempotent.
func (r *SessionRepository) Delete(token string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionPrefix + token))
	})
}
