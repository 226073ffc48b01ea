//go:generate go run go.uber.org/mock/mockgen -source=account.go -destination=../mocks/mock_account_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"

	"mitm-lab/domain"
	"mitm-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

const accountPrefix = "account:"

type IAccountRepository interface {
	Create(username, passwordHash string) error
	Get(username string) (domain.Account, error)
}

type AccountRepository struct {
	db *badger.DB
}

func NewAccountRepository(db *badger.DB) IAccountRepository {
	return &AccountRepository{db: db}
}

// Create persists a new account as a JSON document under "account:{username}".
// The existence check runs inside the update transaction, so two concurrent
// registrations of the same username cannot both succeed.
func (r *AccountRepository) Create(username, passwordHash string) error {
	account := domain.Account{Username: username, PasswordHash: passwordHash}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := []byte(accountPrefix + username)
		_, err := txn.Get(key)
		if err == nil {
			return errors.ErrAccountExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get retrieves an account by username. Absence surfaces as
// badger.ErrKeyNotFound; the service layer folds it into
// ErrInvalidCredentials to avoid username enumeration.
func (r *AccountRepository) Get(username string) (domain.Account, error) {
	var account domain.Account

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		})
	})
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}
