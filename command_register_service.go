package authrouter

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterServiceMessage is the register-service intake carried over the
// bus: it installs the strategy plugin under the service name and stores
// the service configuration.
type RegisterServiceMessage struct {
	Service  string
	Strategy Strategy
	Conf     ServiceConfig
}

func (e RegisterServiceMessage) Type() string { return "auth.register_service" }

type RegisterServiceHandler struct {
	router *ServiceRouter
}

func NewRegisterServiceHandler(router *ServiceRouter) *RegisterServiceHandler {
	return &RegisterServiceHandler{router: router}
}

func (h *RegisterServiceHandler) Execute(ctx context.Context, event RegisterServiceMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during service registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterServiceHandler) execute(_ context.Context, event RegisterServiceMessage) error {
	if event.Service == "" {
		return goerrors.New("service name is required", goerrors.CategoryBadInput)
	}

	if event.Strategy == nil {
		return goerrors.New("strategy plugin is required", goerrors.CategoryBadInput)
	}

	h.router.logger.Info("registering auth service [%s]", event.Service)

	h.router.strategies.Use(event.Service, event.Strategy)
	h.router.registry.Register(event.Service, event.Conf)

	return nil
}
