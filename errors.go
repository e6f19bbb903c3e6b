package authrouter

import (
	"github.com/goliatone/go-errors"
)

// Why codes carried by expected auth failures. These travel to clients as
// the `why` field of JSON error bodies.
const (
	WhyNoUser         = "no-user"
	WhyRestricted     = "restricted"
	WhyUnknownService = "unknown-service"
	WhyUnknown        = "unknown"
)

// ErrNoUser is the failure for credentials that resolve to no account.
var ErrNoUser = errors.New("no matching user", errors.CategoryAuth).
	WithTextCode(WhyNoUser).
	WithCode(errors.CodeUnauthorized)

// ErrRestricted is returned when an unauthenticated request hits a
// restricted path.
var ErrRestricted = errors.New("restricted", errors.CategoryAuth).
	WithTextCode(WhyRestricted).
	WithCode(errors.CodeUnauthorized)

// ErrUnknownService is returned when a request names a service that was
// never registered.
var ErrUnknownService = errors.New("unknown auth service", errors.CategoryAuth).
	WithTextCode(WhyUnknownService).
	WithCode(errors.CodeBadRequest)

// AuthFailure builds an expected auth failure carrying a why reason code.
func AuthFailure(why string) *errors.Error {
	return errors.New("authentication failed", errors.CategoryAuth).
		WithTextCode(why).
		WithCode(errors.CodeUnauthorized)
}

// WhyFromError extracts the reason code from an expected auth failure. It
// returns "" for anything else, which callers treat as unexpected/fatal.
func WhyFromError(err error) string {
	if err == nil {
		return ""
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return ""
	}
	if rich.Category != errors.CategoryAuth {
		return ""
	}
	return rich.TextCode
}
