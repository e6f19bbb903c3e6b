package authrouter

import (
	"time"

	"github.com/goliatone/go-router"
)

// Transient cookie names, namespaced by Options.TransientPrefix. Both carry
// state across exactly one redirect hop.
const (
	urlPrefixCookie = "url-prefix"
	contextCookie   = "context"
)

const (
	defTokenDuration     = 24 * time.Hour
	defTransientDuration = 10 * time.Minute
)

// CookieBridge reads and writes the three cookies owned by the router: the
// long-lived auth token plus the transient url-prefix and context values.
type CookieBridge struct {
	tokenKey        string
	transientPrefix string
	tokenDuration   time.Duration
	secure          bool
}

func NewCookieBridge(tokenKey, transientPrefix string, tokenDuration time.Duration, secure bool) *CookieBridge {
	if tokenDuration <= 0 {
		tokenDuration = defTokenDuration
	}
	return &CookieBridge{
		tokenKey:        tokenKey,
		transientPrefix: transientPrefix,
		tokenDuration:   tokenDuration,
		secure:          secure,
	}
}

// Token returns the client-presented auth token, or "".
func (b *CookieBridge) Token(c router.Context) string {
	return c.Cookies(b.tokenKey)
}

func (b *CookieBridge) SetToken(c router.Context, token string) {
	b.set(c, b.tokenKey, token, b.tokenDuration)
}

func (b *CookieBridge) ClearToken(c router.Context) {
	b.del(c, b.tokenKey)
}

// SetTransient stores a single-use value that must survive one redirect
// round-trip.
func (b *CookieBridge) SetTransient(c router.Context, name, val string) {
	b.set(c, b.transientPrefix+name, val, defTransientDuration)
}

// Peek reads a transient value without consuming it.
func (b *CookieBridge) Peek(c router.Context, name string) string {
	return c.Cookies(b.transientPrefix + name)
}

// Consume reads a transient value and clears it in the same step. A second
// Consume before the value is re-set returns "".
func (b *CookieBridge) Consume(c router.Context, name string) string {
	key := b.transientPrefix + name
	val := c.Cookies(key)
	b.del(c, key)
	return val
}

func (b *CookieBridge) set(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   b.secure,
		SameSite: "Lax",
	})
}

func (b *CookieBridge) del(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   b.secure,
		SameSite: "Lax",
	})
}
