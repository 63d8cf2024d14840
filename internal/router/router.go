// Package router implements the Model Router (spec §4.4): given a role and
// the current mode, it chooses a live backend adapter, a fallback, or a
// mock, without the caller ever needing to know which.
package router

import (
	"fmt"
	"sync"

	"github.com/cortexloop/engine/internal/providers"
)

// Mode controls how the router resolves a role to an adapter.
type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeSelective  Mode = "selective"
	ModeLive       Mode = "live"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeSimulation, ModeSelective, ModeLive:
		return true
	}
	return false
}

// Role is an abstract capability, resolved to a concrete provider.
type Role string

const (
	RoleResearch  Role = "research"
	RolePlanning  Role = "planning"
	RoleBuilding  Role = "building"
	RoleReviewing Role = "reviewing"
)

// Assignment is the static primary/fallback provider pair for a role.
type Assignment struct {
	Primary  string
	Fallback string
}

// assignments is the static role-to-provider table from spec §4.4. Building
// has no fallback: its only real backend is claude.
var assignments = map[Role]Assignment{
	RoleResearch:  {Primary: "gemini", Fallback: "openai"},
	RolePlanning:  {Primary: "openai", Fallback: "gemini"},
	RoleBuilding:  {Primary: "claude", Fallback: ""},
	RoleReviewing: {Primary: "claude", Fallback: "openai"},
}

// Resolution is what the router hands back to a phase.
type Resolution struct {
	Adapter      providers.TextGenerator
	ProviderName string
	IsMock       bool
}

// BuildResolution is the parallel result for the build worker capability.
type BuildResolution struct {
	Worker       providers.BuildWorker
	ProviderName string
	IsMock       bool
}

// Router holds registered adapters and the current mode/enable flags. It is
// safe for concurrent use; UpdateConfig swaps the mode and SetEnabled sets
// the flags, neither touching registered adapters.
type Router struct {
	mu sync.RWMutex

	mode    Mode
	enabled map[string]bool // provider -> enabled, used only in selective mode

	generators   map[string]providers.TextGenerator
	buildWorkers map[string]providers.BuildWorker

	mockGenerator providers.TextGenerator
	mockBuild     providers.BuildWorker
}

// New creates a Router in the given mode with no adapters registered.
// Callers register real adapters with RegisterGenerator/RegisterBuildWorker;
// unregistered providers resolve to the mock.
func New(mode Mode) *Router {
	return &Router{
		mode:          mode,
		enabled:       map[string]bool{},
		generators:    map[string]providers.TextGenerator{},
		buildWorkers:  map[string]providers.BuildWorker{},
		mockGenerator: providers.NewMockGenerator("router"),
		mockBuild:     providers.NewMockBuildWorker(),
	}
}

// RegisterGenerator makes a live TextGenerator available under providerName.
func (r *Router) RegisterGenerator(providerName string, gen providers.TextGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[providerName] = gen
}

// RegisterBuildWorker makes a live BuildWorker available under providerName.
func (r *Router) RegisterBuildWorker(providerName string, worker providers.BuildWorker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buildWorkers[providerName] = worker
}

// SetEnabled sets a provider's enable flag, consulted only in selective mode.
func (r *Router) SetEnabled(providerName string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled[providerName] = enabled
}

// UpdateConfig swaps the effective mode without invalidating registrations.
func (r *Router) UpdateConfig(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("router: invalid mode %q", mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	return nil
}

// GetAssignment exposes the static role table for debugging.
func (r *Router) GetAssignment(role Role) (Assignment, bool) {
	a, ok := assignments[role]
	return a, ok
}

// GetAdapter resolves role to a text-generation adapter under the router's
// current mode.
func (r *Router) GetAdapter(role Role) (Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := assignments[role]
	if !ok {
		return Resolution{}, fmt.Errorf("router: unknown role %q", role)
	}

	if r.mode == ModeSimulation {
		return Resolution{Adapter: r.mockGenerator, ProviderName: "mock", IsMock: true}, nil
	}

	tryProvider := func(name string) (Resolution, bool) {
		if name == "" {
			return Resolution{}, false
		}
		gen, registered := r.generators[name]
		if !registered {
			return Resolution{}, false
		}
		if r.mode == ModeSelective && !r.enabled[name] {
			return Resolution{}, false
		}
		return Resolution{Adapter: gen, ProviderName: name, IsMock: false}, true
	}

	if res, ok := tryProvider(a.Primary); ok {
		return res, nil
	}
	if res, ok := tryProvider(a.Fallback); ok {
		return res, nil
	}
	return Resolution{Adapter: r.mockGenerator, ProviderName: "mock", IsMock: true}, nil
}

// GetBuildWorker follows the same resolution pattern with the single
// provider "claude" (spec §4.4: "the single provider claude").
func (r *Router) GetBuildWorker() (BuildResolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const provider = "claude"

	if r.mode == ModeSimulation {
		return BuildResolution{Worker: r.mockBuild, ProviderName: "mock", IsMock: true}, nil
	}

	worker, registered := r.buildWorkers[provider]
	if registered {
		if r.mode == ModeLive || (r.mode == ModeSelective && r.enabled[provider]) {
			return BuildResolution{Worker: worker, ProviderName: provider, IsMock: false}, nil
		}
	}
	return BuildResolution{Worker: r.mockBuild, ProviderName: "mock", IsMock: true}, nil
}
