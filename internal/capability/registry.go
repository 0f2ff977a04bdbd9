package capability

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registration describes a capability handler and its metadata. Metadata is
// an explicit struct supplied at registration time; there is no implicit
// class- or init-time discovery.
type Registration struct {
	// Name is the capability identifier the planner assigns steps to.
	Name string

	// Description explains what the capability does.
	Description string

	// Priority breaks ties when several capabilities could serve one
	// purpose (default 50, higher wins).
	Priority int

	// Platforms restricts the capability to specific GOOS values.
	// Empty means all platforms.
	Platforms []string

	// RequiredTools names external binaries or services the handler needs.
	// Recorded for diagnostics only; the registry does not probe them.
	RequiredTools []string

	// Disabled gates registration; disabled capabilities are skipped.
	Disabled bool

	// Handler performs the work.
	Handler Handler
}

// Validate checks the registration is usable.
func (r *Registration) Validate() error {
	if r.Name == "" {
		return ErrNameEmpty
	}
	if r.Handler == nil {
		return ErrHandlerNil
	}
	return nil
}

// platformCompatible reports whether the registration may run on goos.
func (r *Registration) platformCompatible(goos string) bool {
	if len(r.Platforms) == 0 {
		return true
	}
	for _, p := range r.Platforms {
		if p == goos {
			return true
		}
	}
	return false
}

// Registry resolves capability names to handlers. Thread-safe; registration
// normally happens once at process start but is allowed at runtime.
type Registry struct {
	mu   sync.RWMutex
	regs map[string]*Registration
	goos string
	log  *zap.Logger
}

// NewRegistry creates an empty registry for the current platform.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		regs: make(map[string]*Registration),
		goos: runtime.GOOS,
		log:  log,
	}
}

// Register adds a capability. Disabled or platform-incompatible
// registrations are skipped silently: the planner simply never sees them.
func (r *Registry) Register(reg Registration) error {
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("invalid capability registration: %w", err)
	}
	if reg.Disabled {
		r.log.Debug("skipping disabled capability", zap.String("name", reg.Name))
		return nil
	}
	if !reg.platformCompatible(r.goos) {
		r.log.Debug("skipping platform-incompatible capability",
			zap.String("name", reg.Name), zap.Strings("platforms", reg.Platforms))
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.regs[reg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, reg.Name)
	}
	if reg.Priority == 0 {
		reg.Priority = 50
	}
	r.regs[reg.Name] = &reg

	r.log.Debug("registered capability",
		zap.String("name", reg.Name), zap.Int("priority", reg.Priority))
	return nil
}

// MustRegister registers a capability and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(fmt.Sprintf("failed to register capability %s: %v", reg.Name, err))
	}
}

// Resolve returns the handler for name.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.regs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return reg.Handler, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.regs[name]
	return ok
}

// Names returns registered capability names sorted by priority (highest
// first), then alphabetically for stability.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.regs))
	for name := range r.regs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := r.regs[names[i]].Priority, r.regs[names[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	return names
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}
