package authrouter

import (
	"context"
	"fmt"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Payload is the loosely typed body carried by bus actions and strategy
// callbacks.
type Payload = map[string]any

// Message identifies a command-bus action. Role/Cmd address request/response
// commands, Role/Trigger address auth trigger actions. Exactly one of Cmd or
// Trigger is set.
type Message struct {
	Role    string
	Cmd     string
	Trigger string
	Payload Payload
}

// Bus dispatches role/cmd actions to the backing business layer. All login,
// logout, token-auth and cleanup logic lives behind this interface.
type Bus interface {
	Act(ctx context.Context, msg Message) (Payload, error)
}

// Completion receives the outcome of a strategy authentication attempt.
// A nil Completion means the strategy owns the whole response cycle.
type Completion func(c router.Context, err error, data Payload, info Payload) error

// Strategy performs the actual credential verification or third-party
// handshake for a named service.
type Strategy interface {
	Authenticate(c router.Context, conf Payload, done Completion) error
}

// StrategyLib is the external strategy library: it keeps named strategies and
// turns them into request handlers.
type StrategyLib interface {
	Use(name string, strategy Strategy)
	Authenticate(name string, conf Payload, done Completion) router.HandlerFunc
}

// StrategyInitializer is an optional StrategyLib extension for libraries
// that need per-request setup. Its middleware runs before session restore.
type StrategyInitializer interface {
	Initialize() router.MiddlewareFunc
}

// StaticServer serves static assets for requests admitted by the content
// filter. The path argument already has the router prefix stripped.
type StaticServer interface {
	Serve(c router.Context, path string) error
}

// User is the account attached to a request after a successful login or
// token restore.
type User struct {
	ID    string
	Nick  string
	Email string
	Name  string
	Admin bool
	Data  Payload
}

// Login is the session record identified by the auth token cookie.
type Login struct {
	ID      string
	Token   string
	Nick    string
	Context string
	Active  bool
	Data    Payload
}

// AuthResult is the shape returned by the user login and token-auth commands.
type AuthResult struct {
	OK    bool
	Why   string
	User  *User
	Login *Login
}

// UserFromPayload maps a bus payload onto a User. Unknown keys stay
// reachable through Data.
func UserFromPayload(p Payload) *User {
	if p == nil {
		return nil
	}
	u := &User{Data: p}
	u.ID, _ = p["id"].(string)
	u.Nick, _ = p["nick"].(string)
	u.Email, _ = p["email"].(string)
	u.Name, _ = p["name"].(string)
	u.Admin, _ = p["admin"].(bool)
	return u
}

// Payload flattens the user back into a bus payload. Nil-safe.
func (u *User) Payload() Payload {
	if u == nil {
		return nil
	}
	out := Payload{}
	for k, v := range u.Data {
		out[k] = v
	}
	out["id"] = u.ID
	out["nick"] = u.Nick
	out["email"] = u.Email
	out["name"] = u.Name
	out["admin"] = u.Admin
	return out
}

// LoginFromPayload maps a bus payload onto a Login.
func LoginFromPayload(p Payload) *Login {
	if p == nil {
		return nil
	}
	l := &Login{Data: p}
	l.ID, _ = p["id"].(string)
	l.Token, _ = p["token"].(string)
	l.Nick, _ = p["nick"].(string)
	l.Context, _ = p["context"].(string)
	l.Active, _ = p["active"].(bool)
	return l
}

// Payload flattens the login back into a bus payload. Nil-safe.
func (l *Login) Payload() Payload {
	if l == nil {
		return nil
	}
	out := Payload{}
	for k, v := range l.Data {
		out[k] = v
	}
	out["id"] = l.ID
	out["token"] = l.Token
	out["nick"] = l.Nick
	out["context"] = l.Context
	out["active"] = l.Active
	return out
}

// AuthResultFromPayload maps a login/auth command response onto an
// AuthResult.
func AuthResultFromPayload(p Payload) *AuthResult {
	if p == nil {
		return nil
	}
	r := &AuthResult{}
	r.OK, _ = p["ok"].(bool)
	r.Why, _ = p["why"].(string)
	if user, ok := p["user"].(map[string]any); ok {
		r.User = UserFromPayload(user)
	}
	if login, ok := p["login"].(map[string]any); ok {
		r.Login = LoginFromPayload(login)
	}
	return r
}

func mergePayloads(base Payload, extra Payload) Payload {
	out := Payload{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHROUTER "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHROUTER "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHROUTER "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
