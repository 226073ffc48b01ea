package services

import (
	"time"

	"mitm-lab/domain"
	"mitm-lab/repositories"
)

type IMessageService interface {
	Send(sender, recipient, text string) error
	Inbox(recipient string) ([]domain.Message, error)
}

type MessageService struct {
	messages repositories.IMessageRepository
	now      func() time.Time
}

func NewMessageService(messages repositories.IMessageRepository) *MessageService {
	return &MessageService{messages: messages, now: time.Now}
}

// Send stamps the message with the current unix-seconds timestamp and
// appends it to the recipient's log.
func (s *MessageService) Send(sender, recipient, text string) error {
	return s.messages.Append(recipient, domain.Message{
		Sender:    sender,
		Timestamp: s.now().Unix(),
		Text:      text,
	})
}

// Inbox returns the recipient's full log, all senders mixed, oldest first.
func (s *MessageService) Inbox(recipient string) ([]domain.Message, error) {
	return s.messages.Fetch(recipient)
}
