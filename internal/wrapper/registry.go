// Package wrapper maps native handles to reference-counted wrappers.
//
// A Registry guarantees that at most one live Wrapper exists per native
// handle. Every Wrapper owns an information cache that memoizes attribute
// queries against its handle, see Wrapper.Info.
//
// Concurrency: Wrap and Unref serialize on the registry lock. Ref is a
// lock-free atomic increment and is only valid while the caller already
// holds a reference. Cached info reads take no lock.
package wrapper

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gomlx/exceptions"

	"github.com/cwbudde/clkit/internal/cl"
)

// Class is the per-kind capability set used by the registry. One value per
// object kind is enough; classes carry no per-wrapper state.
type Class interface {
	// Kind tags wrappers created through this class.
	Kind() cl.Kind

	// InitFields runs once, when the wrapper is first created. It may
	// attach kind-specific fields with Wrapper.SetFields.
	InitFields(w *Wrapper)

	// ReleaseFields is teardown stage (a): release kind-specific fields.
	ReleaseFields(w *Wrapper)

	// ReleaseNative is teardown stage (c): destroy the native resource.
	ReleaseNative(api cl.API, h cl.Handle) error
}

// BaseClass implements Class with no kind-specific fields. Embed it and
// override what the kind needs.
type BaseClass struct {
	K cl.Kind
}

func (c BaseClass) Kind() cl.Kind          { return c.K }
func (BaseClass) InitFields(*Wrapper)      {}
func (BaseClass) ReleaseFields(w *Wrapper) { w.SetFields(nil) }

// ReleaseNative calls the native release for the class kind.
func (c BaseClass) ReleaseNative(api cl.API, h cl.Handle) error {
	return api.Release(c.K, h)
}

// Registry is the table of live wrappers. It is safe for concurrent use.
type Registry struct {
	api    cl.API
	logger *slog.Logger

	mu       sync.Mutex
	wrappers map[cl.Handle]*Wrapper
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lifetime tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry bound to the native API.
func NewRegistry(api cl.API, opts ...Option) *Registry {
	if api == nil {
		exceptions.Panicf("wrapper.NewRegistry: nil native API")
	}
	r := &Registry{
		api:      api,
		logger:   slog.Default(),
		wrappers: make(map[cl.Handle]*Wrapper),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// API returns the native API the registry releases and queries through.
func (r *Registry) API() cl.API { return r.api }

// Wrap returns the wrapper for h, creating it with one reference if h is not
// registered yet and adding a reference otherwise.
//
// Wrapping a zero handle, or an already registered handle with a different
// kind, is a programming error and panics.
func (r *Registry) Wrap(h cl.Handle, class Class) *Wrapper {
	if h == 0 {
		exceptions.Panicf("wrapper.Wrap: zero %s handle", kindOf(class))
	}
	if class == nil {
		exceptions.Panicf("wrapper.Wrap(%#x): nil class", uintptr(h))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.wrappers[h]; ok {
		if w.class.Kind() != class.Kind() {
			exceptions.Panicf("wrapper.Wrap(%#x): handle already wrapped as %s, not %s",
				uintptr(h), w.class.Kind(), class.Kind())
		}
		w.refs.Add(1)
		return w
	}

	w := &Wrapper{handle: h, class: class, reg: r}
	w.refs.Store(1)
	class.InitFields(w)
	r.wrappers[h] = w
	r.logger.Debug("wrapper created", "kind", class.Kind(), "handle", fmt.Sprintf("%#x", uintptr(h)))
	return w
}

// Ref adds a reference to w. The caller must already hold one.
func (r *Registry) Ref(w *Wrapper) {
	if w == nil {
		exceptions.Panicf("wrapper.Ref: nil wrapper")
	}
	if w.refs.Add(1) <= 1 {
		w.refs.Add(-1)
		exceptions.Panicf("wrapper.Ref: %s(%#x) was already destroyed", w.Kind(), uintptr(w.handle))
	}
}

// Unref drops a reference to w. When the last reference goes, w is torn
// down: kind-specific fields are released, the info cache is cleared, the
// native resource is released and the registry entry is removed, all under
// the registry lock so no concurrent Wrap can observe a stale entry.
//
// destroyed reports whether teardown ran. err is the native release error,
// if any; the wrapper is gone either way. Unref on a nil or already
// destroyed wrapper panics.
func (r *Registry) Unref(w *Wrapper) (destroyed bool, err error) {
	if w == nil {
		exceptions.Panicf("wrapper.Unref: nil wrapper")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := w.refs.Add(-1)
	if n < 0 {
		w.refs.Add(1)
		exceptions.Panicf("wrapper.Unref: %s(%#x) reference count already 0", w.Kind(), uintptr(w.handle))
	}
	if n > 0 {
		return false, nil
	}

	w.class.ReleaseFields(w)
	w.cache.clear()
	err = w.class.ReleaseNative(r.api, w.handle)
	delete(r.wrappers, w.handle)

	r.logger.Debug("wrapper destroyed", "kind", w.Kind(), "handle", fmt.Sprintf("%#x", uintptr(w.handle)))
	return true, err
}

// Len returns the number of live wrappers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wrappers)
}

// Counts returns the number of live wrappers per kind.
func (r *Registry) Counts() map[cl.Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[cl.Kind]int)
	for _, w := range r.wrappers {
		counts[w.Kind()]++
	}
	return counts
}

// Memcheck reports whether every wrapper has been destroyed. If not, it
// lists the live ones as "Kind(0xhandle) refs=N", sorted.
func (r *Registry) Memcheck() (ok bool, live []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, w := range r.wrappers {
		live = append(live, fmt.Sprintf("%s(%#x) refs=%d", w.Kind(), uintptr(h), w.refs.Load()))
	}
	sort.Strings(live)
	return len(live) == 0, live
}

func kindOf(c Class) cl.Kind {
	if c == nil {
		return cl.KindNone
	}
	return c.Kind()
}
