package protocol

import (
	"encoding/json"
	"errors"
	"io"
	"net"
)

// ReadPayload performs the protocol's single read, up to MaxPayloadSize
// bytes. A nil payload with a nil error means the peer closed without
// sending anything; callers treat that as a silent disconnect.
func ReadPayload(conn net.Conn) ([]byte, error) {
	buf := make([]byte, MaxPayloadSize)
	n, err := conn.Read(buf)
	if n > 0 {
		// Data together with EOF is still a complete payload.
		return buf[:n], nil
	}
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, err
}

// WriteJSON marshals v and writes it as the connection's single payload.
func WriteJSON(conn net.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}
