// Package server implements the request dispatcher: a stateless
// one-request-per-connection TCP handler in front of the account, session
// and message stores.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	apperrors "mitm-lab/errors"
	"mitm-lab/protocol"
	"mitm-lab/services"
)

type Dispatcher struct {
	auth     services.IAuthService
	messages services.IMessageService
	log      *slog.Logger
}

func NewDispatcher(auth services.IAuthService, messages services.IMessageService,
	log *slog.Logger) *Dispatcher {
	return &Dispatcher{auth: auth, messages: messages, log: log}
}

// Handle serves one connection: exactly one request in, exactly one
// response out, then close. An empty read is a disconnect and gets no
// response; a malformed payload gets an "invalid json" error response
// instead of a silent close.
func (d *Dispatcher) Handle(conn net.Conn) {
	defer conn.Close()

	payload, err := protocol.ReadPayload(conn)
	if err != nil {
		d.log.Debug("Connection read failed", "err", err)
		return
	}
	if len(payload) == 0 {
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		d.log.Warn("Malformed request payload received")
		d.respond(conn, protocol.ErrorResponse(protocol.MsgInvalidJSON))
		return
	}

	// get_messages is polling noise, everything else is worth a line
	if req.Action != protocol.ActionGetMessages {
		d.log.Info("Request received", "action", req.Action, "payload", string(payload))
	}

	d.respond(conn, d.dispatch(req))
}

func (d *Dispatcher) respond(conn net.Conn, resp protocol.Response) {
	if err := protocol.WriteJSON(conn, resp); err != nil {
		d.log.Debug("Response write failed", "err", err)
	}
}

func (d *Dispatcher) dispatch(req protocol.Request) protocol.Response {
	switch req.Action {
	case protocol.ActionRegister:
		return d.register(req)
	case protocol.ActionLogin:
		return d.login(req)
	case protocol.ActionLogout:
		return d.logout(req)
	case protocol.ActionSendMessage:
		return d.sendMessage(req)
	case protocol.ActionGetMessages:
		return d.getMessages(req)
	default:
		d.log.Warn("Unknown action received", "action", req.Action)
		return protocol.ErrorResponse(protocol.MsgUnknownAction)
	}
}

func (d *Dispatcher) register(req protocol.Request) protocol.Response {
	err := d.auth.Register(req.Username, req.Password)
	switch {
	case err == nil:
		d.log.Info("Account created", "username", req.Username)
		return protocol.OKMessage(protocol.MsgUserCreated)
	case errors.Is(err, apperrors.ErrMissingCredentials):
		d.log.Warn("Registration attempt with missing fields")
		return protocol.ErrorResponse(protocol.MsgMissingCredentials)
	case errors.Is(err, apperrors.ErrAccountExists):
		d.log.Warn("Username already taken", "username", req.Username)
		return protocol.ErrorResponse(protocol.MsgAccountExists)
	default:
		d.log.Error("Registration failed", "err", err)
		return protocol.ErrorResponse(protocol.MsgInternalError)
	}
}

func (d *Dispatcher) login(req protocol.Request) protocol.Response {
	token, err := d.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			d.log.Warn("Login refused", "username", req.Username)
			return protocol.ErrorResponse(protocol.MsgInvalidCredentials)
		}
		d.log.Error("Login failed", "err", err)
		return protocol.ErrorResponse(protocol.MsgInternalError)
	}
	d.log.Info("Login successful", "username", req.Username, "token", token)
	return protocol.TokenResponse(token)
}

func (d *Dispatcher) logout(req protocol.Request) protocol.Response {
	if err := d.auth.Logout(req.Token); err != nil {
		d.log.Error("Session revocation failed", "err", err)
		return protocol.ErrorResponse(protocol.MsgInternalError)
	}
	d.log.Info("Logout", "token", req.Token)
	return protocol.OK()
}

func (d *Dispatcher) sendMessage(req protocol.Request) protocol.Response {
	var sender string
	if req.Token == protocol.BypassToken {
		// The documented trust gap: the sender field is believed verbatim,
		// no session lookup. Do not "fix" this, it is what the lab studies.
		sender = req.Sender
		d.log.Info("Injected message accepted", "sender", sender, "to", req.To, "message", req.Message)
	} else {
		sender, _ = d.auth.Resolve(req.Token)
	}

	if sender == "" || req.To == "" || req.Message == "" {
		d.log.Warn("Message refused (missing fields or unauthorized)")
		return protocol.ErrorResponse(protocol.MsgMissingOrUnauthorized)
	}

	if err := d.messages.Send(sender, req.To, req.Message); err != nil {
		d.log.Error("Message storage failed", "err", err)
		return protocol.ErrorResponse(protocol.MsgInternalError)
	}
	d.log.Info("Message stored", "sender", sender, "to", req.To, "message", req.Message)
	return protocol.OK()
}

func (d *Dispatcher) getMessages(req protocol.Request) protocol.Response {
	username, err := d.auth.Resolve(req.Token)
	if err != nil {
		return protocol.ErrorResponse(protocol.MsgUnauthorized)
	}
	messages, err := d.messages.Inbox(username)
	if err != nil {
		d.log.Error("Inbox fetch failed", "username", username, "err", err)
		return protocol.ErrorResponse(protocol.MsgInternalError)
	}
	return protocol.MessagesResponse(messages)
}
