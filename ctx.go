package authrouter

import (
	"github.com/goliatone/go-router"
)

// Locals keys for request-scoped session state. The user/login pair is
// populated by session restore or post-login handling; service and
// credentials are set by the dispatcher while routing.
const (
	localsUserKey        = "authrouter:user"
	localsLoginKey       = "authrouter:login"
	localsResultKey      = "authrouter:result"
	localsServiceKey     = "authrouter:service"
	localsCredentialsKey = "authrouter:credentials"
)

// UserFromContext finds the authenticated user attached to the request.
func UserFromContext(c router.Context) (*User, bool) {
	raw, ok := c.Locals(localsUserKey).(*User)
	return raw, ok && raw != nil
}

// LoginFromContext finds the login record attached to the request.
func LoginFromContext(c router.Context) (*Login, bool) {
	raw, ok := c.Locals(localsLoginKey).(*Login)
	return raw, ok && raw != nil
}

// ResultFromContext finds the raw auth result produced by the current
// login attempt, if any.
func ResultFromContext(c router.Context) (*AuthResult, bool) {
	raw, ok := c.Locals(localsResultKey).(*AuthResult)
	return raw, ok && raw != nil
}

// CredentialsFromContext finds the login credentials bound from a POST
// login body.
func CredentialsFromContext(c router.Context) (*LoginPayload, bool) {
	raw, ok := c.Locals(localsCredentialsKey).(*LoginPayload)
	return raw, ok && raw != nil
}
