package auth

import (
	"testing"

	"mitm-lab/errors"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	req := require.New(t)

	// Known SHA-256 vector, hex encoded.
	req.Equal(
		"5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
		HashPassword("password"),
	)
	req.NotEqual(HashPassword("password"), HashPassword("Password"))
}

func TestVerifyPassword(t *testing.T) {
	req := require.New(t)
	digest := HashPassword("hunter2")

	req.True(VerifyPassword("hunter2", digest))
	req.False(VerifyPassword("hunter3", digest))
	req.False(VerifyPassword("hunter2", "not-a-digest"))
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "alice", password: "pw", wantErr: false},
		{name: "missing username", username: "", password: "pw", wantErr: true},
		{name: "missing password", username: "alice", password: "", wantErr: true},
		{name: "both missing", username: "", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(RegisterRequest{Username: tt.username, Password: tt.password})
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrMissingCredentials)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestNewSessionToken(t *testing.T) {
	req := require.New(t)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token := NewSessionToken()
		req.NotEmpty(token)
		_, dup := seen[token]
		req.False(dup)
		seen[token] = struct{}{}
	}
}
