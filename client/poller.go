package client

import (
	"context"
	"log/slog"
	"time"
)

// Poller watches a session's inbox on a ticker and announces growth through
// its callback. Announcement only: messages are rendered when the user asks
// for the inbox.
type Poller struct {
	client   *Client
	session  Session
	interval time.Duration
	onNew    func(count int)
	log      *slog.Logger
}

func NewPoller(client *Client, session Session, interval time.Duration,
	onNew func(count int), log *slog.Logger) *Poller {
	return &Poller{client: client, session: session, interval: interval, onNew: onNew, log: log}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	seen := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			messages, err := p.client.Inbox(p.session)
			if err != nil {
				// The session may have been revoked or the server may be
				// down; polling keeps trying quietly.
				p.log.Debug("Inbox poll failed", "err", err)
				continue
			}
			if seen >= 0 && len(messages) > seen {
				p.onNew(len(messages) - seen)
			}
			seen = len(messages)
		}
	}
}
