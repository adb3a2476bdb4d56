// Package coordinator hosts extension modules and ties the serializers they
// register to their lifetime.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/serializer"
	"github.com/root-sector/access-audit-serializer/types"
)

type ModuleStatus string

const (
	StatusLoaded   ModuleStatus = "loaded"
	StatusUnloaded ModuleStatus = "unloaded"
	StatusFailed   ModuleStatus = "failed"
)

var (
	// ErrModuleExists is returned when loading a module whose name is taken
	ErrModuleExists = errors.New("module already loaded")

	// ErrModuleNotFound is returned when unloading an unknown module
	ErrModuleNotFound = errors.New("module not found")

	// ErrShuttingDown is returned when loading a module during shutdown
	ErrShuttingDown = errors.New("host is shutting down")

	// ErrRegistrarClosed is returned when a module registers after it was unloaded
	ErrRegistrarClosed = errors.New("module registrar is closed")
)

// Module is an extension loaded at runtime
type Module interface {
	Name() string

	// Register contributes the module's serializers. The registrations
	// last until the module is unloaded.
	Register(ctx context.Context, r *Registrar) error
}

// Registrar is handed to a module while it registers. It owns every
// handle the module obtains and is closed when the module is unloaded.
type Registrar struct {
	target  *serializer.PolymorphicSerializer
	mu      sync.Mutex
	handles []*serializer.Handle
	closed  bool
}

// RegisterSerializer adds a runtime serializer on behalf of the module.
// It returns ErrRegistrarClosed once the module has been unloaded.
func (r *Registrar) RegisterSerializer(fn interfaces.RuntimeSerializer) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrRegistrarClosed
	}

	h := r.target.RegisterSerializer(fn)
	r.mu.Lock()
	if r.closed {
		// Unloaded while registering
		r.mu.Unlock()
		h.Release()
		return ErrRegistrarClosed
	}
	r.handles = append(r.handles, h)
	r.mu.Unlock()
	return nil
}

// RegisterSerializerFunc adds a runtime serializer function on behalf of the module
func (r *Registrar) RegisterSerializerFunc(fn func(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool)) error {
	return r.RegisterSerializer(serializer.RuntimeSerializerFunc(fn))
}

// releaseAll closes the registrar and releases every handle it holds
func (r *Registrar) releaseAll() int {
	r.mu.Lock()
	r.closed = true
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
	return len(handles)
}

func (r *Registrar) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ModuleInfo is a snapshot of a hosted module
type ModuleInfo struct {
	Name        string
	Status      ModuleStatus
	LoadedAt    time.Time
	Serializers int
	Error       error
}

type hostedModule struct {
	module    Module
	status    ModuleStatus
	loadedAt  time.Time
	registrar *Registrar
	err       error
}

// Host tracks loaded modules
type Host struct {
	mu         sync.RWMutex
	serializer *serializer.PolymorphicSerializer
	modules    map[string]*hostedModule
	shutdownCh chan struct{}
	closeOnce  sync.Once
	logger     zerolog.Logger
}

// NewHost creates a host registering module serializers with s
func NewHost(s *serializer.PolymorphicSerializer) *Host {
	return &Host{
		serializer: s,
		modules:    make(map[string]*hostedModule),
		shutdownCh: make(chan struct{}),
		logger:     log.With().Str("component", "module_host").Logger(),
	}
}

// Load registers module. If registration fails, the serializers it
// registered so far are released and the module is kept as failed.
func (h *Host) Load(ctx context.Context, module Module) error {
	if h.IsShuttingDown() {
		return ErrShuttingDown
	}
	name := module.Name()

	h.mu.Lock()
	if existing, exists := h.modules[name]; exists && existing.status == StatusLoaded {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrModuleExists, name)
	}
	hosted := &hostedModule{
		module:    module,
		status:    StatusLoaded,
		loadedAt:  time.Now(),
		registrar: &Registrar{target: h.serializer},
	}
	h.modules[name] = hosted
	h.mu.Unlock()

	if err := module.Register(ctx, hosted.registrar); err != nil {
		released := hosted.registrar.releaseAll()
		h.mu.Lock()
		hosted.status = StatusFailed
		hosted.err = err
		h.mu.Unlock()

		h.logger.Error().Err(err).
			Str("module", name).
			Int("released", released).
			Msg("Module registration failed")
		return fmt.Errorf("failed to load module %s: %w", name, err)
	}

	h.logger.Debug().
		Str("module", name).
		Int("serializers", hosted.registrar.count()).
		Msg("Module loaded")
	return nil
}

// Unload releases every serializer the module registered
func (h *Host) Unload(name string) error {
	h.mu.Lock()
	hosted, exists := h.modules[name]
	if !exists || hosted.status != StatusLoaded {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	hosted.status = StatusUnloaded
	h.mu.Unlock()

	released := hosted.registrar.releaseAll()
	h.logger.Debug().
		Str("module", name).
		Int("released", released).
		Msg("Module unloaded")
	return nil
}

// Status returns a snapshot of the module, or nil when unknown
func (h *Host) Status(name string) *ModuleInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if hosted, exists := h.modules[name]; exists {
		info := hosted.info(name)
		return &info
	}
	return nil
}

// List returns snapshots of every known module
func (h *Host) List() []ModuleInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ModuleInfo, 0, len(h.modules))
	for name, hosted := range h.modules {
		infos = append(infos, hosted.info(name))
	}
	return infos
}

func (m *hostedModule) info(name string) ModuleInfo {
	return ModuleInfo{
		Name:        name,
		Status:      m.status,
		LoadedAt:    m.loadedAt,
		Serializers: m.registrar.count(),
		Error:       m.err,
	}
}

// Shutdown unloads every module. Loading is refused from then on.
func (h *Host) Shutdown(ctx context.Context) error {
	h.closeOnce.Do(func() { close(h.shutdownCh) })

	h.mu.RLock()
	names := make([]string, 0, len(h.modules))
	for name, hosted := range h.modules {
		if hosted.status == StatusLoaded {
			names = append(names, name)
		}
	}
	h.mu.RUnlock()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Unload(name); err != nil && !errors.Is(err, ErrModuleNotFound) {
			return err
		}
	}
	return nil
}

func (h *Host) IsShuttingDown() bool {
	select {
	case <-h.shutdownCh:
		return true
	default:
		return false
	}
}
