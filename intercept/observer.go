package intercept

import (
	"fmt"
	"log/slog"

	"mitm-lab/protocol"

	"github.com/abadojack/whatlanggo"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gookit/color"
)

// Observer is the operator view of intercepted traffic. Only send_message
// payloads are surfaced; polling get_messages requests and upstream
// responses stay quiet so the console is not flooded.
type Observer struct {
	log     *slog.Logger
	colours bool
}

func NewObserver(log *slog.Logger, colours bool) *Observer {
	return &Observer{log: log, colours: colours}
}

// ClientChunk surfaces one inspected client-to-upstream chunk.
func (o *Observer) ClientChunk(insp Inspection, raw []byte) {
	if insp.Request == nil {
		// Opaque traffic: sniff what it looks like, but only at debug.
		o.log.Debug("Non-protocol chunk relayed",
			"mime", mimetype.Detect(raw).String(), "bytes", len(raw))
		return
	}
	if insp.Request.Action != protocol.ActionSendMessage {
		return
	}

	lang := whatlanggo.Detect(insp.Request.Message).Lang.Iso6391()

	switch insp.Verdict {
	case VerdictBlock:
		o.print(color.FgRed, fmt.Sprintf("Client request (ORIGINAL):\n%s", raw))
		o.print(color.FgRed, fmt.Sprintf("Message blocked (forbidden word: %q)", insp.BlockedWord))
		o.log.Warn("Message blocked",
			"word", insp.BlockedWord,
			"sender_token", insp.Request.Token,
			"to", insp.Request.To,
			"original", insp.Request.Message,
			"lang", lang)
	case VerdictRewrite:
		o.print(color.FgYellow, fmt.Sprintf("Client request (ORIGINAL):\n%s", raw))
		o.print(color.FgYellow, fmt.Sprintf("Client request (MODIFIED):\n%s", insp.Forward))
		o.log.Info("Message rewritten",
			"to", insp.Request.To,
			"original", insp.Request.Message,
			"rewritten", insp.Rewritten,
			"lang", lang)
	default:
		o.print(color.FgGreen, fmt.Sprintf("Client request (ORIGINAL):\n%s", raw))
		o.log.Info("Message observed",
			"to", insp.Request.To,
			"message", insp.Request.Message,
			"lang", lang)
	}
}

// UpstreamChunk sees every upstream-to-client chunk. Responses carry no action
// tag, so nothing qualifies for the operator view; they are only kept
// reachable for debugging.
func (o *Observer) UpstreamChunk(raw []byte) {
	o.log.Debug("Upstream response relayed", "bytes", len(raw))
}

func (o *Observer) print(fg color.Color, text string) {
	if o.colours {
		text = color.New(fg).Render(text)
	}
	fmt.Println(text)
}
