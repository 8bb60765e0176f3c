package models

import "time"

// Session holds the current authentication token. Exactly one session is
// active per app instance; it is created on login/signup success and
// destroyed on logout or when the backend rejects the token.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
