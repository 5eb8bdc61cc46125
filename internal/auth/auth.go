package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieName is the session cookie carrying the auth token.
const CookieName = "ast-auth-token"

// TokenMaxAge is how long an issued token stays valid.
const TokenMaxAge = 24 * time.Hour

// ErrInvalidPassword is returned when the supplied secret does not match.
var ErrInvalidPassword = errors.New("invalid password")

// Gate verifies the shared login secret and issues session tokens.
//
// The token format is base64("<unix-millis>:<password>"). The encoding is
// reversible, so the token only obscures the secret rather than protecting
// it; the format is kept for compatibility with existing clients.
type Gate struct {
	password string
	secure   bool
	now      func() time.Time
}

// NewGate creates a gate for the configured secret. secure controls the
// cookie's Secure attribute (on in production).
func NewGate(password string, secure bool) *Gate {
	return &Gate{
		password: password,
		secure:   secure,
		now:      time.Now,
	}
}

// encode matches the existing password-at-rest encoding.
func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// VerifyPassword compares the candidate against the configured secret.
// Equality is checked on the encoded forms.
func (g *Gate) VerifyPassword(candidate string) bool {
	return encode(candidate) == encode(g.password)
}

// Authenticate checks the candidate and mints a token on success.
func (g *Gate) Authenticate(candidate string) (string, error) {
	if !g.VerifyPassword(candidate) {
		return "", ErrInvalidPassword
	}
	return g.CreateToken(), nil
}

// CreateToken issues a new session token stamped with the current time.
func (g *Gate) CreateToken() string {
	millis := g.now().UnixMilli()
	return base64.StdEncoding.EncodeToString(fmt.Appendf(nil, "%d:%s", millis, g.password))
}

// VerifyToken reports whether a token is structurally valid, unexpired,
// and carries the current secret. Malformed input is simply invalid.
func (g *Gate) VerifyToken(token string) bool {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	timestamp, password, ok := strings.Cut(string(decoded), ":")
	if !ok || timestamp == "" || password == "" {
		return false
	}
	millis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := g.now().Sub(time.UnixMilli(millis))
	if age > TokenMaxAge {
		return false
	}
	return password == g.password
}

// SetCookie attaches the token as the session cookie.
func (g *Gate) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(TokenMaxAge / time.Second),
		Path:     "/",
	})
}

// ClearCookie expires the session cookie.
func (g *Gate) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})
}

// Authenticated reports whether the request carries a valid session cookie.
func (g *Gate) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return g.VerifyToken(cookie.Value)
}
