package models

import "time"

// TokenPair is a freshly minted access/refresh pair.
// The HTTP layer delivers it as cookies and in the response body.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	Tokens TokenPair
	User   *User
}
