package serializer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/types"
)

// RuntimeSerializerFunc adapts a plain function to interfaces.RuntimeSerializer
type RuntimeSerializerFunc func(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool)

// Serialize calls f(entry, sc)
func (f RuntimeSerializerFunc) Serialize(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool) {
	return f(entry, sc)
}

type registration struct {
	id    uint64
	fn    interfaces.RuntimeSerializer
	alive atomic.Bool
}

// Registry is the ordered chain of runtime-registered serializers.
// The first serializer that claims an entry wins; later ones are not invoked.
//
// Readers iterate an immutable snapshot of the chain without locking.
// Writers build and publish a new snapshot under mu.
type Registry struct {
	mu     sync.Mutex
	chain  atomic.Pointer[[]*registration]
	nextID uint64

	metrics *Metrics
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		logger: log.With().Str("component", "audit_extension_registry").Logger(),
	}
}

// Register appends fn to the end of the chain. The registration lasts as
// long as a holder of the returned handle (or one of its clones) keeps it:
// callers must keep a reference to the handle, an unreachable handle is
// released by the garbage collector.
func (r *Registry) Register(fn interfaces.RuntimeSerializer) *Handle {
	if fn == nil {
		panic("serializer: Register called with a nil runtime serializer")
	}

	r.mu.Lock()
	r.nextID++
	reg := &registration{id: r.nextID, fn: fn}
	reg.alive.Store(true)

	var next []*registration
	if cur := r.chain.Load(); cur != nil {
		next = make([]*registration, 0, len(*cur)+1)
		next = append(next, *cur...)
	}
	next = append(next, reg)
	r.chain.Store(&next)
	size := len(next)
	r.mu.Unlock()

	r.metrics.setExtensions(size)
	r.logger.Debug().
		Uint64("registrationId", reg.id).
		Int("chainLength", size).
		Msg("Runtime serializer registered")

	return newHandle(r, reg)
}

// RegisterFunc is Register for a plain function
func (r *Registry) RegisterFunc(fn func(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool)) *Handle {
	if fn == nil {
		panic("serializer: RegisterFunc called with a nil function")
	}
	return r.Register(RuntimeSerializerFunc(fn))
}

// TrySerialize offers entry to every live registration in registration
// order and returns the first document produced.
func (r *Registry) TrySerialize(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool) {
	snapshot := r.chain.Load()
	if snapshot == nil {
		return nil, false
	}

	for _, reg := range *snapshot {
		// Released while this scan was running
		if !reg.alive.Load() {
			continue
		}
		doc, ok := reg.fn.Serialize(entry, sc)
		if !ok {
			continue
		}
		if doc == nil || doc.Type == "" {
			panic(fmt.Sprintf("serializer: runtime serializer %d claimed entry %q (%T) without a typed document",
				reg.id, entry.ID(), entry))
		}
		return doc, true
	}
	return nil, false
}

// Len returns the number of live registrations
func (r *Registry) Len() int {
	snapshot := r.chain.Load()
	if snapshot == nil {
		return 0
	}
	n := 0
	for _, reg := range *snapshot {
		if reg.alive.Load() {
			n++
		}
	}
	return n
}

// remove drops reg from the chain. Scans already holding the old snapshot
// skip it once they reach it.
func (r *Registry) remove(reg *registration) {
	if !reg.alive.CompareAndSwap(true, false) {
		return
	}

	r.mu.Lock()
	var size int
	if cur := r.chain.Load(); cur != nil {
		next := make([]*registration, 0, len(*cur))
		for _, other := range *cur {
			if other != reg {
				next = append(next, other)
			}
		}
		r.chain.Store(&next)
		size = len(next)
	}
	r.mu.Unlock()

	r.metrics.setExtensions(size)
	r.logger.Debug().
		Uint64("registrationId", reg.id).
		Int("chainLength", size).
		Msg("Runtime serializer unregistered")
}

// handleState is shared by a handle and all of its clones
type handleState struct {
	registry *Registry
	reg      *registration
	holders  atomic.Int64
}

func (s *handleState) drop() {
	if s.holders.Add(-1) == 0 {
		s.registry.remove(s.reg)
	}
}

// retain adds a holder unless the registration already lost its last one
func (s *handleState) retain() bool {
	for {
		n := s.holders.Load()
		if n <= 0 {
			return false
		}
		if s.holders.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// holder is the release flag of one Handle value
type holder struct {
	released atomic.Bool
}

type cleanupArg struct {
	state  *handleState
	holder *holder
}

func releaseHolder(arg cleanupArg) {
	if arg.holder.released.CompareAndSwap(false, true) {
		arg.state.drop()
	}
}

// Handle keeps a runtime serializer registered. Every handle (the one
// returned by Register and each Clone) is one holder; the serializer leaves
// the chain when the last holder calls Release. A handle that becomes
// unreachable without being released is released by the garbage collector.
type Handle struct {
	state   *handleState
	holder  *holder
	cleanup runtime.Cleanup
}

func newHandle(r *Registry, reg *registration) *Handle {
	state := &handleState{registry: r, reg: reg}
	state.holders.Store(1)
	return state.attach()
}

// attach creates the Handle value for a holder already counted in s.holders
func (s *handleState) attach() *Handle {
	h := &Handle{state: s, holder: &holder{}}
	h.cleanup = runtime.AddCleanup(h, releaseHolder, cleanupArg{state: s, holder: h.holder})
	return h
}

// Clone returns a new holder of the same registration. Cloning a released
// handle returns nil.
func (h *Handle) Clone() *Handle {
	if h == nil || h.holder.released.Load() {
		return nil
	}
	if !h.state.retain() {
		return nil
	}
	return h.state.attach()
}

// Release gives up this holder. Calling it more than once is a no-op.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.cleanup.Stop()
	releaseHolder(cleanupArg{state: h.state, holder: h.holder})
}

// Connected reports whether the serializer is still part of the chain
func (h *Handle) Connected() bool {
	return h != nil && h.state.reg.alive.Load()
}
