package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const cookieTokenKey = "token"

// CookieStore keeps the session token in an authenticated browser cookie,
// as an alternative to the Authorization header.
type CookieStore struct {
	store *sessions.CookieStore
	name  string
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string
	Secret []byte
	Secure bool
	MaxAge time.Duration
}

// NewCookieStore creates a cookie store.
func NewCookieStore(cfg CookieConfig) *CookieStore {
	store := sessions.NewCookieStore(cfg.Secret)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.MaxAge(int(cfg.MaxAge.Seconds()))

	return &CookieStore{store: store, name: cfg.Name}
}

// Token returns the token stored in the request's cookie, or "".
// A tampered or undecodable cookie yields "".
func (c *CookieStore) Token(r *http.Request) string {
	session, err := c.store.Get(r, c.name)
	if err != nil {
		return ""
	}
	token, _ := session.Values[cookieTokenKey].(string)
	return token
}

// Save writes token into the session cookie.
func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := c.store.Get(r, c.name)
	session.Values[cookieTokenKey] = token
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.Get(r, c.name)
	delete(session.Values, cookieTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
