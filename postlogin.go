package authrouter

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// statusFound is the status every policy redirect goes out with. It is a
// permanent-redirect code even for post-action hops; existing clients rely
// on it, so it stays.
const statusFound = http.StatusMovedPermanently

// afterLogin sequences the steps after an authentication attempt: consume
// the transient context, compute the login redirect, promote a successful
// result into the session, persist the token cookie, save the login
// context, then respond.
//
// An error without a recognized why reason is unexpected and propagates.
func (sr *ServiceRouter) afterLogin(c router.Context, err error) error {
	if err != nil && WhyFromError(err) == "" {
		return err
	}

	context := sr.cookies.Consume(c, contextCookie)

	redirect := sr.redirects.Decide(c, KindLogin)

	result, _ := ResultFromContext(c)

	if result != nil && result.OK && result.Login != nil {
		c.Locals(localsUserKey, result.User)
		c.Locals(localsLoginKey, result.Login)

		sr.adminLocal(c, result.User)

		sr.cookies.SetToken(c, result.Login.Token)

		if context != "" {
			result.Login.Context = context
			if _, saveErr := sr.bus.Act(c.Context(), Message{
				Role:    "user",
				Cmd:     "save_login",
				Payload: result.Login.Payload(),
			}); saveErr != nil {
				sr.logerr(saveErr)
			}
		}

		return sr.doRespond(c, redirect)
	}

	why := WhyFromError(err)
	if why == "" && result != nil {
		why = result.Why
	}
	if why == "" {
		why = WhyUnknown
	}

	if redirect != nil {
		sr.logger.Debug("redirect login fail %s", redirect.Fail)
		return sendRedirect(c, redirect.Fail)
	}
	return sendJSON(c, fiber.StatusBadRequest, Payload{"ok": false, "why": why})
}

// doRespond finishes a successful login: redirect to win, or scrub the
// user/login through the clean command and answer JSON.
func (sr *ServiceRouter) doRespond(c router.Context, redirect *Redirect) error {
	if redirect != nil {
		sr.logger.Debug("redirect login win %s", redirect.Win)
		return sendRedirect(c, redirect.Win)
	}

	user, _ := UserFromContext(c)
	login, _ := LoginFromContext(c)

	out, err := sr.bus.Act(c.Context(), Message{
		Role: sr.opts.Role,
		Cmd:  "clean",
		Payload: Payload{
			"user":  user.Payload(),
			"login": login.Payload(),
		},
	})
	if err != nil {
		sr.logerr(err)
		out = Payload{}
	}

	out = mergePayloads(out, Payload{"ok": true})
	return sendJSON(c, fiber.StatusOK, out)
}

// adminLocal grants the admin flag to loopback logins when enabled.
func (sr *ServiceRouter) adminLocal(c router.Context, user *User) {
	if user == nil || !sr.opts.AdminLocal {
		return
	}
	if ip := c.IP(); ip == "127.0.0.1" || ip == "::1" {
		user.Admin = true
	}
}

// respond is the generic responder used by logout and forwarded commands:
// redirect when a target exists, JSON otherwise with the status derived
// from the error and the payload's ok flag.
func (sr *ServiceRouter) respond(c router.Context, err error, redirect string, data Payload) error {
	if redirect != "" {
		return sendRedirect(c, redirect)
	}

	status := fiber.StatusOK
	if err != nil {
		status = fiber.StatusInternalServerError
	} else if ok, _ := data["ok"].(bool); !ok {
		status = fiber.StatusBadRequest
	}
	return sendJSON(c, status, data)
}

func sendRedirect(c router.Context, target string) error {
	return c.Redirect(target, statusFound)
}

func sendJSON(c router.Context, status int, out Payload) error {
	c.SetHeader("Cache-Control", "private, max-age=0, no-cache, no-store")
	return c.JSON(status, out)
}
