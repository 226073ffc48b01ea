package intercept

import (
	"encoding/json"

	"mitm-lab/protocol"
)

// Verdict is the relay's decision about one client-to-upstream chunk.
type Verdict int

const (
	// VerdictForward passes the original bytes untouched.
	VerdictForward Verdict = iota
	// VerdictRewrite passes a re-serialized payload with a modified message.
	VerdictRewrite
	// VerdictBlock drops the chunk: nothing reaches the upstream at all.
	VerdictBlock
)

// Inspection is the outcome of inspecting one chunk.
type Inspection struct {
	Verdict Verdict
	// Forward holds the bytes to send upstream; nil when blocked.
	Forward []byte
	// Request is the parsed payload when it was a send_message, nil for
	// anything the relay does not look into.
	Request     *protocol.Request
	BlockedWord string
	Rewritten   string
}

// Inspector applies the filter policy: block check first, then rewrite.
type Inspector struct {
	blocklist *Blocklist
	rewriter  *Rewriter
}

func NewInspector(blocklist *Blocklist, rewriter *Rewriter) *Inspector {
	return &Inspector{blocklist: blocklist, rewriter: rewriter}
}

// Inspect decides what happens to one client-to-upstream chunk. Only
// send_message payloads are eligible for the pipeline: chunks that do not
// parse as a protocol request, and every other action, pass through
// byte-for-byte. A block hit wins over any rewrite match, and a rewrite
// that changes nothing keeps the original bytes on the wire.
func (i *Inspector) Inspect(chunk []byte) Inspection {
	var req protocol.Request
	if err := json.Unmarshal(chunk, &req); err != nil {
		return Inspection{Verdict: VerdictForward, Forward: chunk}
	}
	if req.Action != protocol.ActionSendMessage {
		return Inspection{Verdict: VerdictForward, Forward: chunk, Request: &req}
	}

	if word, hit := i.blocklist.Match(req.Message); hit {
		return Inspection{Verdict: VerdictBlock, Request: &req, BlockedWord: word}
	}

	rewritten, changed := i.rewriter.Apply(req.Message)
	if !changed {
		return Inspection{Verdict: VerdictForward, Forward: chunk, Request: &req}
	}

	modified := req
	modified.Message = rewritten
	out, err := json.Marshal(modified)
	if err != nil {
		// Should not happen for a payload that just unmarshalled; give up
		// on the rewrite rather than drop traffic.
		return Inspection{Verdict: VerdictForward, Forward: chunk, Request: &req}
	}
	return Inspection{
		Verdict:   VerdictRewrite,
		Forward:   out,
		Request:   &req, // original text, the rewritten one travels in Forward
		Rewritten: rewritten,
	}
}
