package authrouter

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-router"
)

// Action kinds with dedicated per-action redirect configuration. Forwarded
// bus commands use their cmd name as the kind.
const (
	KindLogin  = "login"
	KindLogout = "logout"
)

// RedirectTarget is a per-action {win, fail} URL pair.
type RedirectTarget struct {
	Win  string
	Fail string
}

// RedirectConfig drives the redirect policy engine.
type RedirectConfig struct {
	// Always forces redirects regardless of content type or query flags.
	Always bool

	// Win and Fail are the global default target paths.
	Win  string
	Fail string

	// Restrict is where unauthenticated requests to restricted paths go.
	Restrict string

	// Kinds holds per-action overrides keyed by action kind.
	Kinds map[string]RedirectTarget
}

// Redirect is a computed redirect decision. A nil *Redirect means the
// response must be JSON. Once computed for a request it is stable for the
// remainder of that request's handling.
type Redirect struct {
	Win  string
	Fail string
}

// RedirectEngine decides, per request and action kind, between an HTTP
// redirect and a JSON response, and computes the target URLs.
type RedirectEngine struct {
	cfg     RedirectConfig
	cookies *CookieBridge
}

func NewRedirectEngine(cfg RedirectConfig, cookies *CookieBridge) *RedirectEngine {
	return &RedirectEngine{cfg: cfg, cookies: cookies}
}

// Decide computes the redirect decision for the request and action kind.
//
// The transient url-prefix cookie is single use: it is consumed here. A
// prefix supplied in the query wins over the cookie and is re-persisted so
// it survives the next external redirect hop.
func (e *RedirectEngine) Decide(c router.Context, kind string) *Redirect {
	transientPrefix := e.cookies.Consume(c, urlPrefixCookie)

	if q := c.Query("prefix", ""); q != "" {
		transientPrefix = q
		e.cookies.SetTransient(c, urlPrefixCookie, q)
	}

	if !e.shouldRedirect(c) {
		return nil
	}

	target := e.cfg.Kinds[kind]

	win := c.Query("win", "")
	if win == "" {
		win = transientPrefix + firstNonEmpty(target.Win, e.cfg.Win)
	}

	fail := c.Query("fail", "")
	if fail == "" {
		fail = transientPrefix + firstNonEmpty(target.Fail, e.cfg.Fail)
	}

	return &Redirect{Win: win, Fail: fail}
}

func (e *RedirectEngine) shouldRedirect(c router.Context) bool {
	if e.cfg.Always {
		return true
	}

	if q := c.Query("redirect", ""); q != "" {
		if v, err := strconv.ParseBool(q); err == nil {
			return v
		}
	}

	switch contentType(c) {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return true
	case "application/json":
		return false
	}

	// browser originated requests default to redirects
	return true
}

// contentType returns the request content type with parameters stripped:
// the substring before the first ";".
func contentType(c router.Context) string {
	ct := c.GetString("Content-Type", "")
	return strings.Split(ct, ";")[0]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
