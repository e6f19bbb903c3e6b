package authrouter

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

// Config is the env-driven deployment configuration. It maps onto Options;
// filter rules and per-kind redirect overrides stay programmatic.
type Config struct {
	Role            string        `env:"AUTH_ROLE"             envDefault:"auth"`
	Prefix          string        `env:"AUTH_PREFIX"           envDefault:"/auth"`
	TokenKey        string        `env:"AUTH_TOKEN_COOKIE"     envDefault:"auth-token"`
	TransientPrefix string        `env:"AUTH_TRANSIENT_PREFIX" envDefault:"authrouter-"`
	TokenDuration   time.Duration `env:"AUTH_TOKEN_DURATION"   envDefault:"24h"`
	Action          string        `env:"AUTH_ACTION"`
	AdminLocal      bool          `env:"AUTH_ADMIN_LOCAL"      envDefault:"false"`
	SecureCookies   bool          `env:"AUTH_SECURE_COOKIES"   envDefault:"true"`
	LocalCompletion bool          `env:"AUTH_LOCAL_COMPLETION" envDefault:"false"`
	Debug           bool          `env:"AUTH_DEBUG"            envDefault:"false"`

	LoginPath    string `env:"AUTH_LOGIN_PATH"  envDefault:"/auth/login"`
	LogoutPath   string `env:"AUTH_LOGOUT_PATH" envDefault:"/auth/logout"`
	DefaultPages bool   `env:"AUTH_DEFAULT_PAGES" envDefault:"false"`
	// semicolon separated list of paths rewritten to /login.html
	LoginPages []string `env:"AUTH_LOGIN_PAGES" envSeparator:";"`

	RedirectAlways   bool   `env:"AUTH_REDIRECT_ALWAYS"   envDefault:"false"`
	RedirectWin      string `env:"AUTH_REDIRECT_WIN"      envDefault:"/"`
	RedirectFail     string `env:"AUTH_REDIRECT_FAIL"     envDefault:"/"`
	RedirectRestrict string `env:"AUTH_REDIRECT_RESTRICT" envDefault:"/login"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Role, validation.Required),
		validation.Field(&c.Prefix, validation.Required, validation.By(mustStartWithSlash)),
		validation.Field(&c.TokenKey, validation.Required),
		validation.Field(&c.LoginPath, validation.Required, validation.By(mustStartWithSlash)),
		validation.Field(&c.LogoutPath, validation.Required, validation.By(mustStartWithSlash)),
	)
}

func mustStartWithSlash(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return errors.New("must start with /")
	}
	return nil
}

// LoadConfig reads the environment, honoring a .env file when one exists.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Options expands the flat env config into router Options.
func (c Config) Options() Options {
	opts := DefaultOptions()

	opts.Role = c.Role
	opts.Prefix = c.Prefix
	opts.TokenKey = c.TokenKey
	opts.TransientPrefix = c.TransientPrefix
	opts.TokenDuration = c.TokenDuration
	opts.Action = c.Action
	opts.AdminLocal = c.AdminLocal
	opts.SecureCookies = c.SecureCookies
	opts.LocalCompletion = c.LocalCompletion
	opts.Debug = c.Debug

	opts.URLPath.Login = c.LoginPath
	opts.URLPath.Logout = c.LogoutPath
	opts.DefaultPages = c.DefaultPages
	opts.LoginPages = c.LoginPages

	opts.Redirect.Always = c.RedirectAlways
	opts.Redirect.Win = c.RedirectWin
	opts.Redirect.Fail = c.RedirectFail
	opts.Redirect.Restrict = c.RedirectRestrict

	return opts
}
