package authrouter

import (
	"github.com/goliatone/go-router"
)

// ActionLogin is the default completion mode.
const ActionLogin = "login"

// authenticate persists transient query state, resolves the service and
// delegates credential verification to the strategy library. next receives
// the terminal error of the flow; handlers decide what happens after.
func (sr *ServiceRouter) authenticate(c router.Context, next func(err error) error) error {
	if prefix := c.Query("prefix", ""); prefix != "" {
		sr.cookies.SetTransient(c, urlPrefixCookie, prefix)
	}

	if context := c.Query("context", ""); context != "" {
		sr.cookies.SetTransient(c, contextCookie, context)
	}

	service := sr.registry.ResolveName(c)

	svc, ok := sr.registry.Get(service)
	if !ok {
		sr.logger.Error("no service with name [%s]", service)
		return sendJSON(c, router.StatusBadRequest, Payload{"ok": false, "why": WhyUnknownService})
	}

	// TODO: the local strategy should not be treated differently from
	// other strategies; completion wiring is optional until then.
	var done Completion
	if service != localService || sr.opts.LocalCompletion {
		if sr.opts.Action == "" || sr.opts.Action == ActionLogin {
			done = sr.loginCompletion(service, next)
		} else {
			done = sr.actionCompletion(service, next)
		}
	}

	return sr.strategies.Authenticate(service, svc.Conf.Auth, done)(c)
}

// loginCompletion chains a successful strategy outcome through the bus: a
// service-login trigger enriched with the user payload, then the login
// command by nick. Post-login handling runs regardless of outcome and
// inspects the result itself.
func (sr *ServiceRouter) loginCompletion(service string, next func(err error) error) Completion {
	return func(c router.Context, err error, user Payload, info Payload) error {
		if err != nil {
			return next(err)
		}

		out, err := sr.bus.Act(c.Context(), Message{
			Role:    "auth",
			Trigger: "service-login",
			Payload: mergePayloads(user, Payload{"service": service}),
		})
		if err != nil {
			return sr.afterLogin(c, err)
		}

		nick, _ := out["nick"].(string)

		result, err := sr.bus.Act(c.Context(), Message{
			Role:    "user",
			Cmd:     "login",
			Payload: Payload{"nick": nick, "auto": true},
		})

		c.Locals(localsResultKey, AuthResultFromPayload(result))

		return sr.afterLogin(c, err)
	}
}

// actionCompletion handles non-login modes: the strategy outcome and the
// persisted transient context are forwarded as a service-<action> trigger
// and the bus answers with the redirect target.
func (sr *ServiceRouter) actionCompletion(service string, next func(err error) error) Completion {
	return func(c router.Context, err error, data Payload, info Payload) error {
		if err != nil {
			return next(err)
		}

		out, err := sr.bus.Act(c.Context(), Message{
			Role:    "auth",
			Trigger: "service-" + sr.opts.Action,
			Payload: Payload{
				"service": service,
				"context": sr.cookies.Peek(c, contextCookie),
				"data":    data,
			},
		})
		if err != nil {
			return next(err)
		}

		target, _ := out["redirect"].(string)
		return sendRedirect(c, target)
	}
}
