package provider

import (
	"sync"
)

// Factory constructs a handler instance. It fails with a *ConfigError when
// the provider's required credential is absent.
type Factory func() (Handler, error)

// Registry is the single source of truth for which handler instance backs
// which provider. Handler instances are created lazily on first request and
// memoized for the process lifetime. The Registry is explicit state: it is
// constructed once at startup and passed to the Dispatcher, never reached
// through a hidden global.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	handlers  map[string]Handler
	order     []string // registration order == fixed priority order
	withCred  map[string]bool
	fallback  string // designated no-credential provider
	override  string // configured or runtime default override
}

// NewRegistry creates an empty registry. override, when non-empty, pins the
// default provider regardless of which credentials are configured.
func NewRegistry(override string) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		handlers:  make(map[string]Handler),
		withCred:  make(map[string]bool),
		override:  override,
	}
}

// Register adds a provider factory. hasCredential records whether the
// provider's API key is present in configuration, which drives default
// resolution; construction itself stays lazy.
func (r *Registry) Register(name string, hasCredential bool, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
	r.withCred[name] = hasCredential
}

// SetKeylessFallback designates the provider used as default when no
// credential is configured for any provider.
func (r *Registry) SetKeylessFallback(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = name
}

// Handler returns the handler for the named provider, constructing it on
// first request. Unknown names and failed constructions surface as errors;
// a failed construction is not memoized so a later credential fix can
// succeed.
func (r *Registry) Handler(name string) (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlerLocked(name)
}

func (r *Registry) handlerLocked(name string) (Handler, error) {
	if h, ok := r.handlers[name]; ok {
		return h, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, &ConfigError{Provider: name, Detail: "unsupported provider"}
	}
	h, err := factory()
	if err != nil {
		return nil, err
	}
	r.handlers[name] = h
	return h, nil
}

// DefaultName resolves the default provider identifier using the precedence:
// explicit override, then the first provider in priority order whose
// credential is configured, then the designated keyless fallback.
func (r *Registry) DefaultName() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultNameLocked()
}

func (r *Registry) defaultNameLocked() (string, error) {
	if r.override != "" {
		if _, ok := r.factories[r.override]; !ok {
			return "", &ConfigError{Provider: r.override, Detail: "unsupported provider"}
		}
		return r.override, nil
	}
	for _, name := range r.order {
		if r.withCred[name] {
			return name, nil
		}
	}
	if r.fallback != "" {
		return r.fallback, nil
	}
	return "", &ConfigError{Detail: "no default provider could be resolved"}
}

// Default returns the handler for the resolved default provider.
func (r *Registry) Default() (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, err := r.defaultNameLocked()
	if err != nil {
		return nil, err
	}
	return r.handlerLocked(name)
}

// SetDefault overrides the resolved default for the remainder of the process
// lifetime. The provider must be registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; !ok {
		return &ConfigError{Provider: name, Detail: "unsupported provider"}
	}
	r.override = name
	return nil
}

// Names returns the registered provider identifiers in priority order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FallbackOrder returns every registered provider except primary, in priority
// order. With two registered providers this is exactly "the other one"; more
// providers extend the chain without any caller change.
func (r *Registry) FallbackOrder(primary string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if name != primary {
			out = append(out, name)
		}
	}
	return out
}
