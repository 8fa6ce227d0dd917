package plugin

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	validName    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	validVersion = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)
)

// Info describes a registered plugin.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Registry maps plugin names to plugins.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	frozen  atomic.Bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p. Names must be lower snake case and versions semantic
// versions; a name can be registered once.
//
// Register panics if the registry is frozen.
func (r *Registry) Register(p Plugin) error {
	if r.frozen.Load() {
		panic("plugin: Register called after Freeze")
	}
	if p == nil {
		return &PluginError{Cause: fmt.Errorf("nil plugin")}
	}
	name := p.Name()
	if !validName.MatchString(name) {
		return &PluginError{Name: name, Cause: fmt.Errorf("invalid name: must match %s", validName)}
	}
	if !validVersion.MatchString(p.Version()) {
		return &PluginError{Name: name, Cause: fmt.Errorf("invalid version %q: must be MAJOR.MINOR.PATCH", p.Version())}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		panic("plugin: Register called after Freeze")
	}
	if _, dup := r.plugins[name]; dup {
		return &PluginError{Name: name, Cause: ErrDuplicate}
	}
	r.plugins[name] = p
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Freeze ends registration. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Lookup resolves a plugin by name. Unknown names yield a *PluginError
// wrapping ErrUnknown.
func (r *Registry) Lookup(name string) (Plugin, error) {
	var p Plugin
	var ok bool
	if r.frozen.Load() {
		p, ok = r.plugins[name]
	} else {
		r.mu.Lock()
		p, ok = r.plugins[name]
		r.mu.Unlock()
	}
	if !ok {
		return nil, &PluginError{Name: name, Cause: ErrUnknown}
	}
	return p, nil
}

// List returns the registered plugins sorted by name.
func (r *Registry) List() []Info {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]Info, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, Info{Name: p.Name(), Version: p.Version()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run resolves name and invokes the plugin. Plugin failures, including
// panics, come back as *PluginError.
func (r *Registry) Run(ctx context.Context, name string, ds *Dataset, rc RunContext) (result map[string]any, err error) {
	p, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, &PluginError{Name: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()
	result, err = p.Run(ctx, ds, rc)
	if err != nil {
		return nil, &PluginError{Name: name, Cause: err}
	}
	return result, nil
}

// Default is the process-wide registry. Built-in estimators register
// themselves into it from package estimators.
var Default = NewRegistry()

// Register adds p to Default.
func Register(p Plugin) error { return Default.Register(p) }

// Lookup resolves name in Default.
func Lookup(name string) (Plugin, error) { return Default.Lookup(name) }
