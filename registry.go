package authrouter

import (
	"sync"

	"github.com/goliatone/go-router"
)

// localService is the implicit default service used when a request does not
// name one.
const localService = "local"

// ServiceConfig is the per-service configuration handed over at
// registration time.
type ServiceConfig struct {
	// Strategy is the opaque configuration the strategy plugin was built
	// with. The router never inspects it.
	Strategy Payload

	// Auth is passed to the strategy library on every authenticate call.
	Auth Payload
}

// Service is a named, pluggable authentication provider.
type Service struct {
	Name string
	Conf ServiceConfig
}

// Registry owns the name to service configuration mapping. Registration is
// driven by the register-service bus command and can race with live
// traffic, so reads and writes are synchronized.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
}

func NewRegistry() *Registry {
	return &Registry{services: map[string]*Service{}}
}

// Register stores or overwrites the entry for name.
func (r *Registry) Register(name string, conf ServiceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = &Service{Name: name, Conf: conf}
}

// Get returns the service for name. Callers treat a miss as "no strategy
// available" and must not crash.
func (r *Registry) Get(name string) (*Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// ResolveName extracts the service name from the request, defaulting to
// "local" when absent.
func (r *Registry) ResolveName(c router.Context) string {
	if name := c.Param("service", ""); name != "" {
		return name
	}
	if name, ok := c.Locals(localsServiceKey).(string); ok && name != "" {
		return name
	}
	return localService
}
