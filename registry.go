// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const registryComponent = "PluginManager::Manager"

// Plugin describes a converter implementation known to a Registry.
type Plugin struct {
	// Name is the unique plugin name, e.g. "GlslangShaderConverter".
	Name string

	// Provides lists alias names the plugin can be requested by,
	// e.g. "GlslShaderConverter".
	Provides []string

	// Load checks that the plugin can work, for example that an external
	// tool is installed. It runs at most once per registry lifetime.
	// A nil Load always succeeds.
	Load func(ctx context.Context) error

	// New creates a converter instance. alias is the name the instance was
	// requested by, either Name or one of Provides.
	New func(alias string) Converter

	// Close releases resources acquired by Load. Optional.
	Close func() error
}

// LoadState is the state of a plugin in a Registry.
type LoadState uint8

const (
	// LoadStateNotFound means no plugin has the requested name.
	LoadStateNotFound LoadState = iota

	// LoadStateNotLoaded means the plugin is registered but Load has not run.
	LoadStateNotLoaded

	// LoadStateLoaded means the plugin is ready to be instantiated.
	LoadStateLoaded

	// LoadStateFailed means the plugin's Load returned an error.
	LoadStateFailed
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case LoadStateNotFound:
		return "NotFound"
	case LoadStateNotLoaded:
		return "NotLoaded"
	case LoadStateLoaded:
		return "Loaded"
	case LoadStateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// PluginInfo is a snapshot of a registered plugin.
type PluginInfo struct {
	Name     string
	Provides []string
	State    LoadState
}

type registryEntry struct {
	plugin Plugin
	state  LoadState
	load   *entryLoad
}

// entryLoad is one run of a plugin's Load. Close replaces it so that the
// plugin can be loaded again.
type entryLoad struct {
	once sync.Once
	err  error
}

// Registry holds all converter plugins available to a process. Plugins are
// registered explicitly at startup; "loading" a plugin runs its availability
// probe. A Registry is safe for concurrent use. Probes run without holding
// the registry lock, so a slow probe only delays callers loading the same
// plugin.
type Registry struct {
	mu      sync.Mutex
	logger  *zap.Logger
	entries map[string]*registryEntry
	aliases map[string]string
}

// NewRegistry creates an empty registry reporting load failures to logger.
// A nil logger discards them.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		entries: make(map[string]*registryEntry),
		aliases: make(map[string]string),
	}
}

// Logger returns the logger load failures are reported to. Converters
// instantiated by the registry log there too.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// Register adds a plugin. Plugin names and aliases share one namespace;
// registering a name twice is an error.
func (r *Registry) Register(p Plugin) error {
	if p.Name == "" {
		return errors.New("plugin has no name")
	}
	if p.New == nil {
		return fmt.Errorf("plugin %s has no constructor", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{p.Name}, p.Provides...)
	for _, name := range names {
		if _, ok := r.entries[name]; ok {
			return fmt.Errorf("plugin %s already registered", name)
		}
		if owner, ok := r.aliases[name]; ok {
			return fmt.Errorf("plugin %s already provided by %s", name, owner)
		}
	}

	r.entries[p.Name] = &registryEntry{plugin: p, state: LoadStateNotLoaded, load: &entryLoad{}}
	for _, alias := range p.Provides {
		r.aliases[alias] = p.Name
	}
	return nil
}

// lookup resolves a name or alias. r.mu must be held.
func (r *Registry) lookup(name string) (*registryEntry, bool) {
	if owner, ok := r.aliases[name]; ok {
		name = owner
	}
	e, ok := r.entries[name]
	return e, ok
}

// Provider returns the name of the plugin providing name. For a plugin name
// it returns the name itself.
func (r *Registry) Provider(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	return e.plugin.Name, true
}

// LoadState returns the current state of a plugin without loading it.
func (r *Registry) LoadState(name string) LoadState {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		return LoadStateNotFound
	}
	return e.state
}

// Load makes the plugin available for instantiation. Failures are logged
// and returned as *Error values of kind ErrPluginNotFound or ErrPluginLoad.
func (r *Registry) Load(ctx context.Context, name string) (LoadState, error) {
	r.mu.Lock()
	e, ok := r.lookup(name)
	var l *entryLoad
	if ok {
		l = e.load
	}
	r.mu.Unlock()

	if !ok {
		err := Errorf(ErrPluginNotFound, registryComponent, "load", "plugin %s was not found", name)
		r.logger.Error(err.Error())
		return LoadStateNotFound, err
	}

	l.once.Do(func() {
		if e.plugin.Load != nil {
			l.err = e.plugin.Load(ctx)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		// A Close during the probe discards its result.
		if e.load != l {
			return
		}
		e.state = LoadStateLoaded
		if l.err != nil {
			e.state = LoadStateFailed
		}
	})

	if l.err != nil {
		err := Errorf(ErrPluginLoad, registryComponent, "load", "plugin %s failed to load: %v", name, l.err)
		err.Err = l.err
		r.logger.Error(err.Error())
		return LoadStateFailed, err
	}
	return LoadStateLoaded, nil
}

// Instantiate creates a new converter from a loaded plugin.
func (r *Registry) Instantiate(name string) (Converter, error) {
	r.mu.Lock()
	e, ok := r.lookup(name)
	var state LoadState
	if ok {
		state = e.state
	}
	r.mu.Unlock()

	if !ok {
		return nil, Errorf(ErrPluginNotFound, registryComponent, "instantiate", "plugin %s was not found", name)
	}
	if state != LoadStateLoaded {
		return nil, Errorf(ErrPluginLoad, registryComponent, "instantiate", "plugin %s is not loaded", name)
	}

	c := e.plugin.New(name)
	c.SetLogger(r.logger)
	return c, nil
}

// LoadAndInstantiate loads a plugin and creates an instance of it.
func (r *Registry) LoadAndInstantiate(ctx context.Context, name string) (Converter, error) {
	if _, err := r.Load(ctx, name); err != nil {
		return nil, err
	}
	return r.Instantiate(name)
}

// Plugins lists registered plugins sorted by name.
func (r *Registry) Plugins() []PluginInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]PluginInfo, 0, len(r.entries))
	for _, e := range r.entries {
		provides := append([]string(nil), e.plugin.Provides...)
		sort.Strings(provides)
		infos = append(infos, PluginInfo{
			Name:     e.plugin.Name,
			Provides: provides,
			State:    e.state,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Close unloads all plugins. Registered plugins can be loaded again afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	var loaded []Plugin
	for _, e := range r.entries {
		if e.state == LoadStateLoaded && e.plugin.Close != nil {
			loaded = append(loaded, e.plugin)
		}
		e.state = LoadStateNotLoaded
		e.load = &entryLoad{}
	}
	r.mu.Unlock()

	var errs error
	for _, p := range loaded {
		if err := p.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close %s: %w", p.Name, err))
		}
	}
	return errs
}
