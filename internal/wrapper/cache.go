package wrapper

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
)

// Key identifies a cached attribute query. The primary handle is implicit:
// each wrapper owns its cache.
type Key struct {
	// Secondary is the extra handle some domains take: a device for build
	// and work-group info, an argument index for kernel argument info.
	// Zero when the domain takes none.
	Secondary cl.Handle
	Domain    cl.InfoDomain
	Param     cl.Param
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%#x/%#x", k.Domain, uintptr(k.Secondary), uint32(k.Param))
}

// cache holds the per-wrapper info entries. Populated entries are immutable
// and read without locking; the populate-on-miss path is de-duplicated per
// key so concurrent misses issue one native query.
type cache struct {
	entries sync.Map // Key -> []byte
	derived sync.Map // string -> any
	flight  singleflight.Group
}

func (c *cache) clear() {
	c.entries.Clear()
	c.derived.Clear()
}

// Info returns the value of param for the wrapped handle, querying the
// native API on the first request for a key and answering from the cache
// afterwards. The returned slice is shared with the cache and must not be
// modified.
//
// A parameter the object cannot report yields an errs.InfoUnavailable
// error; any other native failure is returned as a *cl.StatusError. Failures
// are not cached.
func (w *Wrapper) Info(secondary cl.Handle, domain cl.InfoDomain, param cl.Param) ([]byte, error) {
	key := Key{Secondary: secondary, Domain: domain, Param: param}
	if v, ok := w.cache.entries.Load(key); ok {
		return v.([]byte), nil
	}

	v, err, _ := w.cache.flight.Do(key.String(), func() (any, error) {
		// A flight for this key may have finished since the lookup above.
		if v, ok := w.cache.entries.Load(key); ok {
			return v, nil
		}
		value, err := Query(w.reg.api, domain, w.handle, secondary, param)
		if err != nil {
			return nil, err
		}
		actual, _ := w.cache.entries.LoadOrStore(key, value)
		return actual, nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "%s(%#x) info %s", w.Kind(), uintptr(w.handle), key)
	}
	return v.([]byte), nil
}

// RefreshInfo queries the native API even when the key is cached, and
// replaces the cached entry with the new value. Slices returned earlier for
// the same key stay valid and keep the old value.
func (w *Wrapper) RefreshInfo(secondary cl.Handle, domain cl.InfoDomain, param cl.Param) ([]byte, error) {
	key := Key{Secondary: secondary, Domain: domain, Param: param}
	value, err := Query(w.reg.api, domain, w.handle, secondary, param)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s(%#x) info %s", w.Kind(), uintptr(w.handle), key)
	}
	w.cache.entries.Store(key, value)
	return value, nil
}

// Invalidate drops the cached entry for a key, if any.
func (w *Wrapper) Invalidate(secondary cl.Handle, domain cl.InfoDomain, param cl.Param) {
	w.cache.entries.Delete(Key{Secondary: secondary, Domain: domain, Param: param})
}

// Cached reports whether a key is currently cached.
func (w *Wrapper) Cached(secondary cl.Handle, domain cl.InfoDomain, param cl.Param) bool {
	_, ok := w.cache.entries.Load(Key{Secondary: secondary, Domain: domain, Param: param})
	return ok
}

// StoreDerived caches a value computed from other entries. Derived values
// are not protected by the immutability of native answers: whoever changes
// one of the sources must call InvalidateDerived.
func (w *Wrapper) StoreDerived(name string, v any) {
	w.cache.derived.Store(name, v)
}

// Derived returns a derived value stored with StoreDerived.
func (w *Wrapper) Derived(name string) (any, bool) {
	return w.cache.derived.Load(name)
}

// InvalidateDerived drops a derived value.
func (w *Wrapper) InvalidateDerived(name string) {
	w.cache.derived.Delete(name)
}

// Query runs the two-call query protocol against the native API without
// any caching: a size query with a nil buffer, then a value query into a
// buffer of exactly that size.
//
// A size of zero, or CL_INVALID_VALUE on the size query, means the object
// cannot report param and yields errs.InfoUnavailable. The native status is
// named in the message but not wrapped, so the error is not mistaken for a
// native failure.
func Query(api cl.API, domain cl.InfoDomain, obj, secondary cl.Handle, param cl.Param) ([]byte, error) {
	size, err := api.GetInfo(domain, obj, secondary, param, nil)
	if err != nil {
		if cl.IsStatus(err, cl.InvalidValue) {
			return nil, errs.New(errs.InfoUnavailable, "query",
				"%s param %#x not available (%s)", domain, uint32(param), cl.InvalidValue)
		}
		return nil, errors.Wrapf(err, "size of %s param %#x", domain, uint32(param))
	}
	if size == 0 {
		return nil, errs.New(errs.InfoUnavailable, "query", "%s param %#x not available (empty)", domain, uint32(param))
	}

	value := make([]byte, size)
	if _, err := api.GetInfo(domain, obj, secondary, param, value); err != nil {
		return nil, errors.Wrapf(err, "value of %s param %#x", domain, uint32(param))
	}
	return value, nil
}
