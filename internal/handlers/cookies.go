package handlers

import (
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieOptions controls how session cookies are set.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if expires.IsZero() {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.Expires = expires
	}
	return c
}

func setSessionCookies(w http.ResponseWriter, opts CookieOptions, pair models.TokenPair) {
	http.SetCookie(w, opts.cookie(AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, opts.cookie(RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func clearSessionCookies(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, opts.cookie(AccessTokenCookie, "", time.Time{}))
	http.SetCookie(w, opts.cookie(RefreshTokenCookie, "", time.Time{}))
}
