// Package protocol defines the wire format shared by the server, the relay,
// the injector and the clients: one self describing JSON payload per TCP
// connection, answered by one JSON response, after which the connection is
// closed.
//
// There is no length prefix framing. A payload must fit in a single read of
// MaxPayloadSize bytes and be written in a single call; peers never send a
// second request on the same connection.
package protocol

import "mitm-lab/domain"

// MaxPayloadSize bounds a single protocol read on every peer.
const MaxPayloadSize = 8192

// BypassToken is the sentinel the dispatcher trusts unconditionally on
// send_message: the request's sender field is taken verbatim instead of
// being resolved through the session store. This trust gap is the subject
// of the lab and must stay in place.
const BypassToken = "MITM_FAKE"

const (
	ActionRegister    = "register"
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionSendMessage = "send_message"
	ActionGetMessages = "get_messages"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Canonical response texts. Clients and tests match on these strings, so
// they are fixed here rather than derived from error values.
const (
	MsgInvalidJSON           = "invalid json"
	MsgUserCreated           = "user created"
	MsgMissingCredentials    = "missing credentials"
	MsgAccountExists         = "username already exists"
	MsgInvalidCredentials    = "invalid credentials"
	MsgMissingOrUnauthorized = "missing or unauthorized"
	MsgUnauthorized          = "unauthorized"
	MsgUnknownAction         = "unknown action"
	MsgInternalError         = "internal error"
)

// Request is the single payload a peer sends. Action selects the operation;
// the other fields are populated per action. Sender is only honored together
// with BypassToken.
type Request struct {
	Action   string `json:"action"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	To       string `json:"to,omitempty"`
	Message  string `json:"message,omitempty"`
	Sender   string `json:"sender,omitempty"`
}

// Response is the single payload the dispatcher answers with.
// Messages is a pointer so that get_messages can answer an explicit empty
// list while every other action omits the field entirely.
type Response struct {
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Token    string            `json:"token,omitempty"`
	Messages *[]domain.Message `json:"messages,omitempty"`
}

func OK() Response {
	return Response{Status: StatusOK}
}

func OKMessage(text string) Response {
	return Response{Status: StatusOK, Message: text}
}

func TokenResponse(token string) Response {
	return Response{Status: StatusOK, Token: token}
}

func MessagesResponse(messages []domain.Message) Response {
	if messages == nil {
		messages = []domain.Message{}
	}
	return Response{Status: StatusOK, Messages: &messages}
}

func ErrorResponse(text string) Response {
	return Response{Status: StatusError, Message: text}
}
