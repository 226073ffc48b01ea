package domain

// Account is a registered user. Accounts are immutable once created and are
// never deleted; the password is stored only as a hex SHA-256 digest.
type Account struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// Session binds an opaque token to the username that logged in. A token maps
// to at most one username and carries no expiry.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
