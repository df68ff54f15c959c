package wrapper

import (
	"sync/atomic"

	"github.com/cwbudde/clkit/internal/cl"
)

// Wrapper is the single reference-counted wrapper of a native handle. It is
// created by Registry.Wrap and destroyed by the Unref that drops its last
// reference.
type Wrapper struct {
	handle cl.Handle
	class  Class
	reg    *Registry
	refs   atomic.Int32
	cache  cache

	// fields is owned by the class; set in InitFields, dropped in
	// ReleaseFields.
	fields any
}

// Handle returns the wrapped native handle.
func (w *Wrapper) Handle() cl.Handle { return w.handle }

// Kind returns the object kind the wrapper was created for.
func (w *Wrapper) Kind() cl.Kind { return w.class.Kind() }

// RefCount returns the current reference count. Only meaningful for
// debugging and tests: it may change as soon as it is read.
func (w *Wrapper) RefCount() int { return int(w.refs.Load()) }

// Registry returns the registry that owns w.
func (w *Wrapper) Registry() *Registry { return w.reg }

// Fields returns the kind-specific fields attached by the class.
func (w *Wrapper) Fields() any { return w.fields }

// SetFields attaches kind-specific fields. Classes call it from InitFields
// and ReleaseFields.
func (w *Wrapper) SetFields(v any) { w.fields = v }

// Ref is shorthand for w.Registry().Ref(w).
func (w *Wrapper) Ref() { w.reg.Ref(w) }

// Unref is shorthand for w.Registry().Unref(w).
func (w *Wrapper) Unref() (destroyed bool, err error) { return w.reg.Unref(w) }
