package intercept

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"mitm-lab/protocol"
	"mitm-lab/repositories"
	"mitm-lab/server"
	"mitm-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// relayFixture is a full lab topology on loopback: a real dispatcher with
// its stores, and a relay in front of it.
type relayFixture struct {
	relayAddr string
	messages  repositories.IMessageRepository
}

func startFixture(t *testing.T, words []string, rules []Rule) relayFixture {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	accounts := repositories.NewAccountRepository(db)
	sessions := repositories.NewSessionRepository(db)
	messages := repositories.NewMessageRepository(db, log)

	dispatcher := server.NewDispatcher(
		services.NewAuthService(accounts, sessions),
		services.NewMessageService(messages),
		log,
	)

	upstreamAddr := reserveAddr(t)
	relayAddr := reserveAddr(t)

	blocklist, err := NewBlocklist(words)
	req.NoError(err)
	relay := NewRelay(relayAddr, upstreamAddr,
		NewInspector(blocklist, NewRewriter(rules)),
		NewObserver(log, false),
		log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.New(upstreamAddr, dispatcher, log, 5*time.Second, 16).Run(ctx) }()
	go func() { _ = relay.Run(ctx) }()
	waitForListener(t, upstreamAddr)
	waitForListener(t, relayAddr)

	return relayFixture{relayAddr: relayAddr, messages: messages}
}

func reserveAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func waitForListener(t *testing.T, addr string) {
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
	t.Fatalf("listener at %s never came up", addr)
}

// through performs one request/response cycle through the relay.
func (f relayFixture) through(t *testing.T, req protocol.Request) protocol.Response {
	t.Helper()
	conn, err := net.Dial("tcp", f.relayAddr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, protocol.WriteJSON(conn, req))
	raw, err := protocol.ReadPayload(conn)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

// loginThrough registers and logs a user in through the relay, proving the
// auth actions relay untouched, and returns the session token.
func (f relayFixture) loginThrough(t *testing.T, username string) string {
	t.Helper()
	resp := f.through(t, protocol.Request{Action: protocol.ActionRegister, Username: username, Password: "pw"})
	require.Equal(t, protocol.StatusOK, resp.Status)

	resp = f.through(t, protocol.Request{Action: protocol.ActionLogin, Username: username, Password: "pw"})
	require.Equal(t, protocol.StatusOK, resp.Status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRelay_ForwardsCleanTraffic(t *testing.T) {
	fixture := startFixture(t,
		[]string{"secret"},
		[]Rule{{Old: "topsecret", New: "redacted"}})
	req := require.New(t)

	alice := fixture.loginThrough(t, "alice")
	fixture.loginThrough(t, "bob")

	resp := fixture.through(t, protocol.Request{
		Action: protocol.ActionSendMessage, Token: alice, To: "bob", Message: "see you at noon",
	})
	req.Equal(protocol.StatusOK, resp.Status)

	stored, err := fixture.messages.Fetch("bob")
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("see you at noon", stored[0].Text)
	req.Equal("alice", stored[0].Sender)
}

func TestRelay_BlockedMessageNeverReachesTheStore(t *testing.T) {
	fixture := startFixture(t,
		[]string{"secret"},
		[]Rule{{Old: "topsecret", New: "redacted"}})
	req := require.New(t)

	alice := fixture.loginThrough(t, "alice")

	// The blocked request gets no response: the relay drops it and the
	// client sees a dead connection. Fire it and only wait for the close.
	conn, err := net.Dial("tcp", fixture.relayAddr)
	req.NoError(err)
	req.NoError(protocol.WriteJSON(conn, protocol.Request{
		Action: protocol.ActionSendMessage, Token: alice, To: "bob",
		Message: "the topsecret plan is secret",
	}))
	req.NoError(conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	req.Error(err) // timeout or EOF, never a response
	_ = conn.Close()

	stored, err := fixture.messages.Fetch("bob")
	req.NoError(err)
	req.Empty(stored)
}

func TestRelay_RewritesMessageInFlight(t *testing.T) {
	fixture := startFixture(t,
		[]string{"foo"},
		[]Rule{{Old: "topsecret", New: "redacted"}})
	req := require.New(t)

	alice := fixture.loginThrough(t, "alice")

	resp := fixture.through(t, protocol.Request{
		Action: protocol.ActionSendMessage, Token: alice, To: "bob",
		Message: "remember the topsecret plan",
	})
	req.Equal(protocol.StatusOK, resp.Status)

	stored, err := fixture.messages.Fetch("bob")
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("remember the redacted plan", stored[0].Text)
	req.Equal("alice", stored[0].Sender)
}

func TestRelay_GetMessagesRelaysUntouched(t *testing.T) {
	fixture := startFixture(t, []string{"secret"}, nil)
	req := require.New(t)

	alice := fixture.loginThrough(t, "alice")
	bob := fixture.loginThrough(t, "bob")

	resp := fixture.through(t, protocol.Request{
		Action: protocol.ActionSendMessage, Token: alice, To: "bob", Message: "hello bob",
	})
	req.Equal(protocol.StatusOK, resp.Status)

	inbox := fixture.through(t, protocol.Request{Action: protocol.ActionGetMessages, Token: bob})
	req.Equal(protocol.StatusOK, inbox.Status)
	req.NotNil(inbox.Messages)
	req.Len(*inbox.Messages, 1)
	req.Equal("hello bob", (*inbox.Messages)[0].Text)
}
