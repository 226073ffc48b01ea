// Package injector is the attacker's side channel: an operator console
// that submits forged, sender-attributed messages straight to the real
// dispatcher using the bypass token, without holding any session and
// without going through the relay.
package injector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"mitm-lab/protocol"

	"github.com/gookit/color"
)

const dialTimeout = 5 * time.Second

// Console reads (sender, recipient, text) triples from its input and
// injects each as a forged send_message. Implements runtime.Worker.
type Console struct {
	serverAddr string
	in         io.Reader
	log        *slog.Logger
	colours    bool
}

func NewConsole(serverAddr string, in io.Reader, log *slog.Logger, colours bool) *Console {
	return &Console{serverAddr: serverAddr, in: in, log: log, colours: colours}
}

// Run loops on operator input until the input closes or the context ends.
// An empty field cancels the current triple, never the loop; injection
// failures are reported and the loop keeps going.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	c.print(color.FgMagenta, "[MITM] interactive injection console ready")

	for ctx.Err() == nil {
		fmt.Println("\n[MITM] forge a message (empty field cancels)")

		sender, open := c.prompt(scanner, "> from: ")
		if !open {
			return nil
		}
		if sender == "" {
			continue
		}
		to, open := c.prompt(scanner, "> to: ")
		if !open {
			return nil
		}
		if to == "" {
			continue
		}
		text, open := c.prompt(scanner, "> message: ")
		if !open {
			return nil
		}
		if text == "" {
			continue
		}

		c.Inject(sender, to, text)
	}
	return ctx.Err()
}

func (c *Console) prompt(scanner *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !scanner.Scan() {
		return "", false
	}
	return scanner.Text(), true
}

// Inject performs one forged one-shot exchange with the dispatcher and
// reports the raw response. The attempt is logged whether or not the
// dispatcher accepted it.
func (c *Console) Inject(sender, to, text string) {
	req := protocol.Request{
		Action:  protocol.ActionSendMessage,
		Token:   protocol.BypassToken,
		Sender:  sender,
		To:      to,
		Message: text,
	}

	conn, err := net.DialTimeout("tcp", c.serverAddr, dialTimeout)
	if err != nil {
		c.print(color.FgRed, fmt.Sprintf("[MITM] injection failed: %v", err))
		c.log.Error("Injection dial failed", "server", c.serverAddr, "err", err)
		return
	}
	defer conn.Close()

	if err := protocol.WriteJSON(conn, req); err != nil {
		c.print(color.FgRed, fmt.Sprintf("[MITM] injection failed: %v", err))
		c.log.Error("Injection write failed", "err", err)
		return
	}

	raw, err := protocol.ReadPayload(conn)
	if err != nil {
		c.print(color.FgRed, fmt.Sprintf("[MITM] no response: %v", err))
		c.log.Error("Injection response read failed", "err", err)
		return
	}

	c.print(color.FgMagenta, fmt.Sprintf("[MITM] injected %q as %s, server said: %s", text, sender, raw))
	c.log.Info("Injection attempted",
		"sender", sender, "to", to, "message", text, "response", string(raw))
}

func (c *Console) print(fg color.Color, text string) {
	if c.colours {
		text = color.New(fg).Render(text)
	}
	fmt.Println(text)
}
