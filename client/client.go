// Package client implements the interactive user's side of the protocol:
// one-shot request/response exchanges, a local sent-message history, and
// inbox polling. Presentation glue lives in cmd/client; no protocol
// invariant is enforced here.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"mitm-lab/domain"
	"mitm-lab/errors"
	"mitm-lab/protocol"
)

const dialTimeout = 5 * time.Second

// Session is the logged-in state, passed explicitly to every authenticated
// action instead of living in a package global.
type Session struct {
	Token    string
	Username string
}

type Client struct {
	serverAddr string
	historyDir string
	log        *slog.Logger
}

func New(serverAddr, historyDir string, log *slog.Logger) *Client {
	return &Client{serverAddr: serverAddr, historyDir: historyDir, log: log}
}

// do performs the protocol's one-shot exchange: dial, single write, single
// read, close.
func (c *Client) do(req protocol.Request) (protocol.Response, error) {
	conn, err := net.DialTimeout("tcp", c.serverAddr, dialTimeout)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("dial %s: %w", c.serverAddr, err)
	}
	defer conn.Close()

	if err := protocol.WriteJSON(conn, req); err != nil {
		return protocol.Response{}, err
	}
	raw, err := protocol.ReadPayload(conn)
	if err != nil {
		return protocol.Response{}, err
	}
	if len(raw) == 0 {
		return protocol.Response{}, fmt.Errorf("server closed without a response")
	}

	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return protocol.Response{}, fmt.Errorf("unparseable response %q: %w", raw, err)
	}
	return resp, nil
}

func (c *Client) Register(username, password string) error {
	resp, err := c.do(protocol.Request{
		Action: protocol.ActionRegister, Username: username, Password: password,
	})
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK {
		return fmt.Errorf("registration refused: %s", resp.Message)
	}
	return nil
}

func (c *Client) Login(username, password string) (Session, error) {
	c.log.Info("Login attempt", "username", username)
	resp, err := c.do(protocol.Request{
		Action: protocol.ActionLogin, Username: username, Password: password,
	})
	if err != nil {
		return Session{}, err
	}
	if resp.Status != protocol.StatusOK || resp.Token == "" {
		c.log.Warn("Login refused", "username", username, "message", resp.Message)
		return Session{}, errors.ErrInvalidCredentials
	}
	c.log.Info("Login successful", "username", username)
	return Session{Token: resp.Token, Username: username}, nil
}

// Logout revokes the session server side. Best effort: a dead server does
// not keep the user captive in the menu.
func (c *Client) Logout(session Session) {
	c.log.Info("Logout", "username", session.Username)
	if _, err := c.do(protocol.Request{Action: protocol.ActionLogout, Token: session.Token}); err != nil {
		c.log.Warn("Logout request failed", "err", err)
	}
}

func (c *Client) Send(session Session, to, text string) error {
	resp, err := c.do(protocol.Request{
		Action: protocol.ActionSendMessage, Token: session.Token, To: to, Message: text,
	})
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK {
		return fmt.Errorf("send refused: %s", resp.Message)
	}
	c.appendHistory(session.Username, to, text)
	return nil
}

func (c *Client) Inbox(session Session) ([]domain.Message, error) {
	resp, err := c.do(protocol.Request{Action: protocol.ActionGetMessages, Token: session.Token})
	if err != nil {
		return nil, err
	}
	if resp.Status != protocol.StatusOK {
		return nil, fmt.Errorf("inbox refused: %s", resp.Message)
	}
	if resp.Messages == nil {
		return []domain.Message{}, nil
	}
	return *resp.Messages, nil
}

// appendHistory records a sent message in the per-(user, peer) history
// file. Failures are logged and swallowed: history is a convenience, not
// part of the protocol.
func (c *Client) appendHistory(username, peer, text string) {
	if c.historyDir == "" {
		return
	}
	path := filepath.Join(c.historyDir, fmt.Sprintf("%s_to_%s.json", username, peer))

	var history []domain.Message
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &history)
	}
	history = append(history, domain.Message{
		Sender:    username,
		Timestamp: time.Now().Unix(),
		Text:      text,
	})

	data, err := json.Marshal(history)
	if err != nil {
		c.log.Warn("History marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		c.log.Warn("History write failed", "path", path, "err", err)
	}
}
