//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"mitm-lab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	Append(recipient string, message domain.Message) error
	Fetch(recipient string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) IMessageRepository {
	return &MessageRepository{db: db, log: log}
}

// Append persists one message in the recipient's log.
// The key is formatted as "msg:{recipient}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order equals insertion order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (r *MessageRepository) Append(recipient string, message domain.Message) error {
	key := fmt.Sprintf("%s%s:%019d:%s",
		messagePrefix,
		recipient,
		time.Now().UnixNano(),
		uuid.NewString(),
	)
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Fetch returns the recipient's whole log, oldest first, using a prefix
// scan. The slice is never nil: an unknown recipient has an empty log.
func (r *MessageRepository) Fetch(recipient string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix + recipient + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				r.log.Error("Corrupt message record skipped",
					"key", string(it.Item().Key()), "err", err)
				continue
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
