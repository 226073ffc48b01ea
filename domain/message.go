// Package domain contains the core entities of the messaging system.
package domain

// Message is one stored chat message as seen by its recipient. The recipient
// is implicit: it is the key of the log the message lives in. Messages are
// immutable and the per-recipient log is append only.
//
// The JSON field names are the wire and storage format: the text travels
// under "message", not "text".
type Message struct {
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"message"`
}
