package authrouter

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FilterConfig declares a request filter. A nil config never matches, All
// matches everything, otherwise Rules maps a path pattern to the methods it
// admits. An empty method list admits all methods. A pattern ending in "*"
// matches by prefix, anything else matches the path exactly.
type FilterConfig struct {
	All   bool
	Rules map[string][]string
}

// RequestFilter matches requests against a declarative rule set. It holds no
// per-request state and is safe for concurrent use.
type RequestFilter struct {
	all   bool
	rules map[string][]string
}

// NewRequestFilter validates the configuration and builds a filter.
// Malformed rules fail here, not at match time.
func NewRequestFilter(cfg *FilterConfig) (*RequestFilter, error) {
	if cfg == nil {
		return nil, nil
	}

	if cfg.All {
		return &RequestFilter{all: true}, nil
	}

	rules := make(map[string][]string, len(cfg.Rules))
	for pattern, methods := range cfg.Rules {
		if err := validation.Validate(pattern, validation.Required); err != nil {
			return nil, err
		}

		normalized := make([]string, 0, len(methods))
		for _, method := range methods {
			method = strings.ToUpper(strings.TrimSpace(method))
			if err := validation.Validate(method,
				validation.Required,
				validation.In("GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"),
			); err != nil {
				return nil, err
			}
			normalized = append(normalized, method)
		}
		rules[pattern] = normalized
	}

	return &RequestFilter{rules: rules}, nil
}

// Match reports whether the path/method pair is admitted by the filter.
func (f *RequestFilter) Match(path, method string) bool {
	if f == nil {
		return false
	}
	if f.all {
		return true
	}

	method = strings.ToUpper(method)
	for pattern, methods := range f.rules {
		if !matchPattern(pattern, path) {
			continue
		}
		if len(methods) == 0 {
			return true
		}
		for _, m := range methods {
			if m == method {
				return true
			}
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return path == pattern
}
