package models

// User is the identity resolved for a connection at handshake time. It is
// immutable for the connection's lifetime; the authoritative record lives in
// the external user store.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`

	// DiscordID links the user to the voice side channel. Never sent to clients.
	DiscordID string `json:"-"`
}

// DisplayName returns the username, falling back for users without one.
func (u *User) DisplayName() string {
	if u == nil || u.Username == "" {
		return "Anonymous"
	}
	return u.Username
}
