package authrouter

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// URLPaths are the route and reserved-segment names the dispatcher matches.
// Reserved names on the generic service path are passed through untouched.
type URLPaths struct {
	Login        string
	Logout       string
	Instance     string
	Register     string
	ResetCreate  string
	ResetLoad    string
	ResetExecute string
}

// Options configures a ServiceRouter.
type Options struct {
	// Role is the bus role this router owns (register-service intake,
	// clean command).
	Role string

	// Prefix is the URL prefix for the generic service routes.
	Prefix string

	// TokenKey is the auth token cookie name.
	TokenKey string

	// TransientPrefix namespaces the transient cookies.
	TransientPrefix string

	// TokenDuration bounds the token cookie lifetime.
	TokenDuration time.Duration

	// Action selects the strategy completion mode. Empty or "login" wires
	// the login completion; any other value wires the generic action
	// completion tagged service-<action>.
	Action string

	// AdminLocal grants the admin flag to loopback logins.
	AdminLocal bool

	// SecureCookies sets the Secure flag on every cookie write.
	SecureCookies bool

	// DefaultPages rewrites LoginPages hits to /login.html before static
	// serving.
	DefaultPages bool
	LoginPages   []string

	URLPath  URLPaths
	Redirect RedirectConfig

	Exclude *FilterConfig
	Include *FilterConfig
	Content *FilterConfig

	// Restrict denies unauthenticated access to matching paths. When
	// RestrictFunc is set it replaces the filter entirely.
	Restrict     *FilterConfig
	RestrictFunc router.MiddlewareFunc

	// LocalCompletion wires the standard completion for the "local"
	// service too. Off by default: local handling is historically
	// delegated to the strategy's own response convention.
	LocalCompletion bool

	// LogoutHook runs during logout. Failures are logged, never fatal.
	LogoutHook func(c router.Context) error

	Debug bool
}

// DefaultOptions mirror the paths a typical deployment uses.
func DefaultOptions() Options {
	return Options{
		Role:            "auth",
		Prefix:          "/auth",
		TokenKey:        "auth-token",
		TransientPrefix: "authrouter-",
		URLPath: URLPaths{
			Login:        "/auth/login",
			Logout:       "/auth/logout",
			Instance:     "instance",
			Register:     "register",
			ResetCreate:  "create_reset",
			ResetLoad:    "load_reset",
			ResetExecute: "execute_reset",
		},
		Redirect: RedirectConfig{
			Win:      "/",
			Fail:     "/",
			Restrict: "/login",
		},
	}
}

// Option mutates a ServiceRouter during construction.
type Option func(*ServiceRouter) *ServiceRouter

func WithLogger(logger Logger) Option {
	return func(sr *ServiceRouter) *ServiceRouter {
		sr.logger = logger
		return sr
	}
}

func WithStatic(static StaticServer) Option {
	return func(sr *ServiceRouter) *ServiceRouter {
		sr.static = static
		return sr
	}
}

func WithLocalCompletion(enabled bool) Option {
	return func(sr *ServiceRouter) *ServiceRouter {
		sr.opts.LocalCompletion = enabled
		return sr
	}
}

func WithDebug(enabled bool) Option {
	return func(sr *ServiceRouter) *ServiceRouter {
		sr.opts.Debug = enabled
		return sr
	}
}

func WithLogoutHook(hook func(c router.Context) error) Option {
	return func(sr *ServiceRouter) *ServiceRouter {
		sr.opts.LogoutHook = hook
		return sr
	}
}

// ServiceRouter binds incoming requests to pluggable authentication
// services and forwards authenticated actions to the command bus.
type ServiceRouter struct {
	opts       Options
	bus        Bus
	strategies StrategyLib
	registry   *Registry
	cookies    *CookieBridge
	redirects  *RedirectEngine
	static     StaticServer

	exclude  *RequestFilter
	include  *RequestFilter
	content  *RequestFilter
	restrict *RequestFilter

	logger Logger
}

// New builds a ServiceRouter. Filter configuration is validated here;
// malformed rules fail construction, not request handling.
func New(bus Bus, strategies StrategyLib, opts Options, options ...Option) (*ServiceRouter, error) {
	if bus == nil {
		panic("Missing Bus in service router...")
	}

	if strategies == nil {
		panic("Missing StrategyLib in service router...")
	}

	cookies := NewCookieBridge(opts.TokenKey, opts.TransientPrefix, opts.TokenDuration, opts.SecureCookies)

	sr := &ServiceRouter{
		opts:       opts,
		bus:        bus,
		strategies: strategies,
		registry:   NewRegistry(),
		cookies:    cookies,
		redirects:  NewRedirectEngine(opts.Redirect, cookies),
		logger:     defLogger{},
	}

	var err error
	if sr.exclude, err = NewRequestFilter(opts.Exclude); err != nil {
		return nil, err
	}
	if sr.include, err = NewRequestFilter(opts.Include); err != nil {
		return nil, err
	}
	if sr.content, err = NewRequestFilter(opts.Content); err != nil {
		return nil, err
	}
	if sr.restrict, err = NewRequestFilter(opts.Restrict); err != nil {
		return nil, err
	}

	for _, opt := range options {
		sr = opt(sr)
	}

	return sr, nil
}

// Registry exposes the service registry.
func (sr *ServiceRouter) Registry() *Registry {
	return sr.registry
}

// RegisterService stores a service configuration under name.
func (sr *ServiceRouter) RegisterService(name string, conf ServiceConfig) {
	sr.registry.Register(name, conf)
}

// Middleware returns the full request pipeline: content filter, default
// login pages, exclude/include filters, session restore, access
// restriction, then route dispatch. Unmatched paths fall through to next.
func (sr *ServiceRouter) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Path()
			method := c.Method()

			if sr.content.Match(path, method) {
				return sr.serveStatic(c, strings.TrimPrefix(path, sr.opts.Prefix))
			}

			if sr.opts.DefaultPages {
				for _, page := range sr.opts.LoginPages {
					if path == page {
						return sr.serveStatic(c, "/login.html")
					}
				}
			}

			if sr.exclude.Match(path, method) && !sr.include.Match(path, method) {
				return next(c)
			}

			pipeline := func(c router.Context) error {
				if err := sr.restoreSession(c); err != nil {
					return err
				}

				restricted := sr.restriction(func(c router.Context) error {
					return sr.dispatch(c, next)
				})
				return restricted(c)
			}

			if init, ok := sr.strategies.(StrategyInitializer); ok {
				pipeline = init.Initialize()(pipeline)
			}

			return pipeline(c)
		}
	}
}

func (sr *ServiceRouter) serveStatic(c router.Context, path string) error {
	if sr.static == nil {
		sr.logger.Error("static content requested but no static server configured: %s", path)
		return c.Next()
	}
	return sr.static.Serve(c, path)
}

// restriction denies unauthenticated access to restricted paths: JSON
// clients get a 401 body, everything else is redirected to the configured
// restrict target.
func (sr *ServiceRouter) restriction(next router.HandlerFunc) router.HandlerFunc {
	if sr.opts.RestrictFunc != nil {
		return sr.opts.RestrictFunc(next)
	}

	return func(c router.Context) error {
		_, loggedIn := UserFromContext(c)
		if !sr.restrict.Match(c.Path(), c.Method()) || loggedIn {
			return next(c)
		}

		if contentType(c) == "application/json" {
			return sendJSON(c, router.StatusUnauthorized, Payload{"ok": false, "why": WhyRestricted})
		}
		return sendRedirect(c, sr.opts.Redirect.Restrict)
	}
}

// dispatch is the route table: login and logout paths, the generic
// /:service path and /:service/callback. Anything else falls through.
func (sr *ServiceRouter) dispatch(c router.Context, next router.HandlerFunc) error {
	path := c.Path()

	switch path {
	case sr.opts.URLPath.Login:
		switch c.Method() {
		case "GET":
			return sr.handleLogin(c)
		case "POST":
			return sr.handleLoginPost(c)
		}
		return next(c)
	case sr.opts.URLPath.Logout:
		return sr.handleLogout(c)
	}

	if service, callback, ok := sr.matchServicePath(path); ok {
		c.Locals(localsServiceKey, service)

		if callback {
			return sr.handleCallback(c, service)
		}
		return sr.handleService(c, service, next)
	}

	return next(c)
}

// matchServicePath resolves the dynamic service segment under the prefix:
// <prefix>/<service> and <prefix>/<service>/callback.
func (sr *ServiceRouter) matchServicePath(path string) (service string, callback bool, ok bool) {
	rest, found := strings.CutPrefix(path, sr.opts.Prefix+"/")
	if !found || rest == "" {
		return "", false, false
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return parts[0], false, true
	case len(parts) == 2 && parts[1] == "callback":
		return parts[0], true, true
	}
	return "", false, false
}

func (sr *ServiceRouter) handleLogin(c router.Context) error {
	return sr.authenticate(c, func(err error) error {
		return sr.afterLogin(c, err)
	})
}

// LoginPayload is the POST login body. Values supplied in the body join
// the effective query; username is synthesized from nick or email when
// absent.
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Nick     string `form:"nick" json:"nick"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.By(func(any) error {
			if p.Username == "" && p.Nick == "" && p.Email == "" {
				return errors.New("an identifier is required")
			}
			return nil
		})),
		validation.Field(&p.Email, validation.By(func(any) error {
			if p.Email == "" {
				return nil
			}
			return validation.Validate(p.Email, is.Email)
		})),
	)
}

func (sr *ServiceRouter) handleLoginPost(c router.Context) error {
	payload := new(LoginPayload)
	if err := c.Bind(payload); err != nil {
		sr.logger.Error("login parse payload: %s", err)
		return sendJSON(c, router.StatusBadRequest, Payload{"ok": false, "why": WhyUnknown})
	}

	if payload.Username == "" {
		if payload.Nick != "" {
			payload.Username = payload.Nick
		} else {
			payload.Username = payload.Email
		}
	}

	if err := payload.Validate(); err != nil {
		sr.logger.Error("login validate payload: %s", err)
		return sendJSON(c, router.StatusBadRequest, Payload{"ok": false, "why": WhyUnknown})
	}

	if sr.opts.Debug {
		sr.logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	c.Locals(localsCredentialsKey, payload)

	return sr.authenticate(c, func(err error) error {
		return sr.afterLogin(c, err)
	})
}

// handleLogout clears the token cookie unconditionally and invalidates
// every distinct non-empty token it can see, client side and server side.
// The invalidation commands are fire and forget: the response does not
// wait for them.
func (sr *ServiceRouter) handleLogout(c router.Context) error {
	clientToken := sr.cookies.Token(c)
	sr.cookies.ClearToken(c)

	var serverToken string
	if login, ok := LoginFromContext(c); ok {
		serverToken = login.Token
	}
	c.Locals(localsUserKey, nil)
	c.Locals(localsLoginKey, nil)

	if clientToken != "" {
		sr.actAsync(c, Message{Role: "user", Cmd: "logout", Payload: Payload{"token": clientToken}})
	}

	if serverToken != "" && serverToken != clientToken {
		sr.logger.Info("auth token-mismatch client=%s server=%s", clientToken, serverToken)
		sr.actAsync(c, Message{Role: "user", Cmd: "logout", Payload: Payload{"token": serverToken}})
	}

	if sr.opts.LogoutHook != nil {
		if err := sr.opts.LogoutHook(c); err != nil {
			sr.logerr(err)
		}
	}

	redirect := sr.redirects.Decide(c, KindLogout)

	return sr.respond(c, nil, redirect.win(), Payload{"ok": true})
}

// handleService runs the generic /:service route. Reserved path names are
// not services: those requests pass through untouched.
func (sr *ServiceRouter) handleService(c router.Context, service string, next router.HandlerFunc) error {
	if sr.isReservedName(service) {
		return next(c)
	}

	return sr.authenticate(c, func(err error) error {
		return err
	})
}

// handleCallback always runs the authentication step and then proceeds to
// post-login handling; callback flows surface success or failure through
// the resulting user object, not through the callback error.
func (sr *ServiceRouter) handleCallback(c router.Context, service string) error {
	return sr.authenticate(c, func(err error) error {
		if err != nil {
			return err
		}
		return sr.afterLogin(c, nil)
	})
}

func (sr *ServiceRouter) isReservedName(service string) bool {
	switch service {
	case sr.opts.URLPath.Instance,
		sr.opts.URLPath.Register,
		sr.opts.URLPath.ResetCreate,
		sr.opts.URLPath.ResetLoad,
		sr.opts.URLPath.ResetExecute:
		return service != ""
	}
	return false
}

// actAsync fires a bus action without waiting; failures are logged only.
// The action must outlive the response, so cancellation is detached.
func (sr *ServiceRouter) actAsync(c router.Context, msg Message) {
	ctx := context.WithoutCancel(c.Context())
	go func() {
		if _, err := sr.bus.Act(ctx, msg); err != nil {
			sr.logerr(err)
		}
	}()
}

func (sr *ServiceRouter) logerr(err error) {
	if err != nil {
		sr.logger.Error("%s", err)
	}
}

// win is nil-safe: no redirect decision means no redirect target.
func (r *Redirect) win() string {
	if r == nil {
		return ""
	}
	return r.Win
}

func (r *Redirect) fail() string {
	if r == nil {
		return ""
	}
	return r.Fail
}
