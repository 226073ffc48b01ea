// Package intercept implements the transparent relay that sits between the
// clients and the real dispatcher: it decodes the wire protocol, applies a
// block/rewrite policy to send_message traffic, and forwards everything
// else untouched.
package intercept

import (
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Blocklist finds forbidden substrings in message text, case insensitively.
// Built on an Aho-Corasick automaton so one pass over the text checks every
// configured word.
type Blocklist struct {
	matcher *goahocorasick.Machine
	empty   bool
}

func NewBlocklist(words []string) (*Blocklist, error) {
	if len(words) == 0 {
		return &Blocklist{empty: true}, nil
	}

	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = []rune(strings.ToLower(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Blocklist{matcher: m}, nil
}

// Match reports the first forbidden word occurring in text, scanning
// case-insensitively, and whether there was a hit at all.
func (b *Blocklist) Match(text string) (string, bool) {
	if b.empty {
		return "", false
	}
	terms := b.matcher.MultiPatternSearch([]rune(strings.ToLower(text)), false)
	if len(terms) == 0 {
		return "", false
	}
	return string(terms[0].Word), true
}
