package authrouter

import (
	"github.com/goliatone/go-router"
)

// restoreSession rebuilds the request session from the auth token cookie
// via the user auth-by-token command. A dead token clears the cookie.
// This step never terminates the request on its own; only a bus transport
// failure is escalated.
func (sr *ServiceRouter) restoreSession(c router.Context) error {
	token := sr.cookies.Token(c)
	if token == "" {
		return nil
	}

	out, err := sr.bus.Act(c.Context(), Message{
		Role:    "user",
		Cmd:     "auth",
		Payload: Payload{"token": token},
	})
	if err != nil {
		return err
	}

	result := AuthResultFromPayload(out)
	if result == nil || !result.OK {
		// dead login - get rid of the cookie
		sr.cookies.ClearToken(c)
		return nil
	}

	// Only user and login are restored. The result slot belongs to the
	// current login attempt; a restored session must not satisfy it.
	c.Locals(localsUserKey, result.User)
	c.Locals(localsLoginKey, result.Login)

	sr.adminLocal(c, result.User)

	return nil
}
