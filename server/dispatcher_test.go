package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"mitm-lab/domain"
	"mitm-lab/protocol"
	"mitm-lab/repositories"
	"mitm-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// startTestServer boots a dispatcher on a loopback port backed by a
// throwaway Badger store and returns its address plus the message
// repository for post-hoc store inspection.
func startTestServer(t *testing.T) (string, repositories.IMessageRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	accounts := repositories.NewAccountRepository(db)
	sessions := repositories.NewSessionRepository(db)
	messages := repositories.NewMessageRepository(db, log)

	dispatcher := NewDispatcher(
		services.NewAuthService(accounts, sessions),
		services.NewMessageService(messages),
		log,
	)
	srv := New("127.0.0.1:0", dispatcher, log, 5*time.Second, 16)

	// The listener address is only known after Listen; grab it by probing.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	srv.addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()
	waitForServer(t, addr)

	return addr, messages
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up", addr)
}

// exchange performs the protocol's one-shot request/response cycle with a
// raw payload.
func exchange(t *testing.T, addr string, payload []byte) protocol.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(payload)
	require.NoError(t, err)

	raw, err := protocol.ReadPayload(conn)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func call(t *testing.T, addr string, req protocol.Request) protocol.Response {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return exchange(t, addr, payload)
}

func TestDispatcher_RegisterAndLogin(t *testing.T) {
	addr, _ := startTestServer(t)
	req := require.New(t)

	resp := call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: "alice", Password: "pw"})
	req.Equal(protocol.StatusOK, resp.Status)
	req.Equal(protocol.MsgUserCreated, resp.Message)

	t.Run("duplicate register always fails", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: "alice", Password: "other"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgAccountExists, resp.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: "bob"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgMissingCredentials, resp.Message)
	})

	t.Run("login returns a token", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionLogin, Username: "alice", Password: "pw"})
		require.Equal(t, protocol.StatusOK, resp.Status)
		require.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionLogin, Username: "alice", Password: "nope"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgInvalidCredentials, resp.Message)
	})
}

func TestDispatcher_SessionLifecycle(t *testing.T) {
	addr, _ := startTestServer(t)
	req := require.New(t)

	call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: "alice", Password: "pw"})
	login := call(t, addr, protocol.Request{Action: protocol.ActionLogin, Username: "alice", Password: "pw"})
	req.NotEmpty(login.Token)

	// Token works before logout.
	inbox := call(t, addr, protocol.Request{Action: protocol.ActionGetMessages, Token: login.Token})
	req.Equal(protocol.StatusOK, inbox.Status)
	req.NotNil(inbox.Messages)
	req.Empty(*inbox.Messages)

	// Logout is idempotent, even for a token that never existed.
	for _, token := range []string{login.Token, login.Token, "never-existed"} {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionLogout, Token: token})
		req.Equal(protocol.StatusOK, resp.Status)
	}

	// Revoked token no longer resolves.
	inbox = call(t, addr, protocol.Request{Action: protocol.ActionGetMessages, Token: login.Token})
	req.Equal(protocol.StatusError, inbox.Status)
	req.Equal(protocol.MsgUnauthorized, inbox.Message)
}

func TestDispatcher_SendAndFetchMessages(t *testing.T) {
	addr, _ := startTestServer(t)
	req := require.New(t)

	for _, u := range []string{"alice", "bob"} {
		call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: u, Password: "pw"})
	}
	alice := call(t, addr, protocol.Request{Action: protocol.ActionLogin, Username: "alice", Password: "pw"}).Token
	bob := call(t, addr, protocol.Request{Action: protocol.ActionLogin, Username: "bob", Password: "pw"}).Token

	for _, text := range []string{"one", "two", "three"} {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionSendMessage, Token: alice, To: "bob", Message: text})
		req.Equal(protocol.StatusOK, resp.Status)
	}

	inbox := call(t, addr, protocol.Request{Action: protocol.ActionGetMessages, Token: bob})
	req.Equal(protocol.StatusOK, inbox.Status)
	req.NotNil(inbox.Messages)
	got := *inbox.Messages
	req.Len(got, 3)
	for i, text := range []string{"one", "two", "three"} {
		req.Equal("alice", got[i].Sender)
		req.Equal(text, got[i].Text)
		req.NotZero(got[i].Timestamp)
	}

	t.Run("send with a stale token is refused", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionSendMessage, Token: "stale", To: "bob", Message: "hi"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgMissingOrUnauthorized, resp.Message)
	})

	t.Run("send without recipient is refused", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: protocol.ActionSendMessage, Token: alice, Message: "hi"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgMissingOrUnauthorized, resp.Message)
	})
}

func TestDispatcher_BypassTokenInjection(t *testing.T) {
	addr, messages := startTestServer(t)
	req := require.New(t)

	call(t, addr, protocol.Request{Action: protocol.ActionRegister, Username: "bob", Password: "pw"})

	// No session for "alice" exists anywhere, yet the forged send lands.
	resp := call(t, addr, protocol.Request{
		Action:  protocol.ActionSendMessage,
		Token:   protocol.BypassToken,
		Sender:  "alice",
		To:      "bob",
		Message: "hi",
	})
	req.Equal(protocol.StatusOK, resp.Status)

	stored, err := messages.Fetch("bob")
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(domain.Message{Sender: "alice", Timestamp: stored[0].Timestamp, Text: "hi"}, stored[0])

	t.Run("bypass without sender is still refused", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{
			Action:  protocol.ActionSendMessage,
			Token:   protocol.BypassToken,
			To:      "bob",
			Message: "hi",
		})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgMissingOrUnauthorized, resp.Message)
	})
}

func TestDispatcher_MalformedAndUnknown(t *testing.T) {
	addr, messages := startTestServer(t)
	req := require.New(t)

	t.Run("invalid json", func(t *testing.T) {
		resp := exchange(t, addr, []byte("this is not json"))
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgInvalidJSON, resp.Message)
	})

	t.Run("unknown action mutates nothing", func(t *testing.T) {
		resp := call(t, addr, protocol.Request{Action: "delete_account", Username: "bob"})
		require.Equal(t, protocol.StatusError, resp.Status)
		require.Equal(t, protocol.MsgUnknownAction, resp.Message)
	})

	stored, err := messages.Fetch("bob")
	req.NoError(err)
	req.Empty(stored)
}
