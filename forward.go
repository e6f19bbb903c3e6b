package authrouter

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// Result payload keys stamped by the forwarding adapter before the result
// reaches the generic responder.
const (
	HTTPStatusKey   = "http_status"
	HTTPRedirectKey = "http_redirect"
)

// ActFunc invokes a bus action. Forwarded routes may substitute their own.
type ActFunc func(ctx context.Context, msg Message) (Payload, error)

// RespondFunc renders a forwarded result or error.
type RespondFunc func(c router.Context, err error, out Payload) error

// ForwardFunc is the seam used by routes outside the auth flow that still
// need session-aware redirect behavior.
type ForwardFunc func(c router.Context, msg Message, act ActFunc, respond RespondFunc) error

// Forward builds the forwarding adapter: it attaches the current session's
// user and login to the outgoing payload, computes the redirect decision
// keyed by the command name, invokes the bus, and stamps status and
// redirect target onto the outcome.
func (sr *ServiceRouter) Forward() ForwardFunc {
	return func(c router.Context, msg Message, act ActFunc, respond RespondFunc) error {
		if act == nil {
			act = sr.bus.Act
		}

		redirect := sr.redirects.Decide(c, msg.Cmd)

		payload := msg.Payload
		if payload == nil {
			payload = Payload{}
		}

		if user, ok := UserFromContext(c); ok {
			payload["user"] = user.Payload()
		}

		if login, ok := LoginFromContext(c); ok {
			payload["login"] = login.Payload()
		}
		msg.Payload = payload

		out, err := act(c.Context(), msg)
		if err != nil {
			rich := goerrors.Wrap(err, goerrors.CategoryOperation, "forwarded command failed").
				WithMetadata(map[string]any{
					HTTPRedirectKey: redirect.fail(),
				})
			return respond(c, rich, nil)
		}

		status := fiber.StatusBadRequest
		if ok, _ := out["ok"].(bool); ok {
			status = fiber.StatusOK
		}

		out = mergePayloads(out, Payload{
			HTTPStatusKey:   status,
			HTTPRedirectKey: redirect.win(),
		})
		return respond(c, nil, out)
	}
}

// Respond is the default RespondFunc: it honors the stamped redirect and
// status, falling back to the generic responder rules.
func (sr *ServiceRouter) Respond(c router.Context, err error, out Payload) error {
	if err != nil {
		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.Metadata != nil {
			if target, ok := rich.Metadata[HTTPRedirectKey].(string); ok && target != "" {
				return sendRedirect(c, target)
			}
		}
		return sr.respond(c, err, "", Payload{"ok": false, "why": WhyUnknown})
	}

	target, _ := out[HTTPRedirectKey].(string)
	if target != "" {
		return sendRedirect(c, target)
	}

	status, _ := out[HTTPStatusKey].(int)
	if status == 0 {
		status = fiber.StatusOK
	}
	return sendJSON(c, status, out)
}
