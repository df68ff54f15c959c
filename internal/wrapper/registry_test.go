package wrapper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/cl/clfake"
)

var (
	contextClass = BaseClass{K: cl.KindContext}
	deviceClass  = BaseClass{K: cl.KindDevice}
)

func newContext(t *testing.T, f *clfake.API) cl.Handle {
	t.Helper()
	h, err := f.CreateContext(f.Devices(f.Platforms()[0]))
	require.NoError(t, err)
	return h
}

func TestWrapIdentity(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	h := newContext(t, f)

	w1 := r.Wrap(h, contextClass)
	w2 := r.Wrap(h, contextClass)

	assert.Same(t, w1, w2)
	assert.Equal(t, 2, w1.RefCount())
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, h, w1.Handle())
	assert.Equal(t, cl.KindContext, w1.Kind())
}

func TestTeardownAtZero(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	h := newContext(t, f)

	w := r.Wrap(h, contextClass)
	w.Ref()
	r.Ref(w)
	require.Equal(t, 3, w.RefCount())

	for i := 0; i < 2; i++ {
		destroyed, err := w.Unref()
		require.NoError(t, err)
		assert.False(t, destroyed)
		assert.Zero(t, f.Releases(h))
	}

	destroyed, err := w.Unref()
	require.NoError(t, err)
	assert.True(t, destroyed)
	assert.Equal(t, 1, f.Releases(h))
	assert.Zero(t, r.Len())

	assert.Panics(t, func() { _, _ = w.Unref() })
	assert.Equal(t, 1, f.Releases(h))
	assert.Panics(t, func() { w.Ref() })
}

func TestProgrammingErrorsPanic(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	h := newContext(t, f)

	assert.Panics(t, func() { _, _ = r.Unref(nil) })
	assert.Panics(t, func() { r.Ref(nil) })
	assert.Panics(t, func() { r.Wrap(0, contextClass) })
	assert.Panics(t, func() { r.Wrap(h, nil) })
	assert.Panics(t, func() { NewRegistry(nil) })

	r.Wrap(h, contextClass)
	assert.Panics(t, func() { r.Wrap(h, BaseClass{K: cl.KindProgram}) })
}

func TestRewrapAfterDestroyCreatesNewWrapper(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	d := f.Devices(f.Platforms()[0])[0]

	w1 := r.Wrap(d, deviceClass)
	_, err := w1.Unref()
	require.NoError(t, err)

	w2 := r.Wrap(d, deviceClass)
	assert.NotSame(t, w1, w2)
	assert.Equal(t, 1, w2.RefCount())
}

type recordingClass struct {
	BaseClass
	t      *testing.T
	r      *Registry
	events []string
}

type argTable struct{ pending int }

func (c *recordingClass) InitFields(w *Wrapper) {
	c.events = append(c.events, "init")
	w.SetFields(&argTable{pending: 2})
}

func (c *recordingClass) ReleaseFields(w *Wrapper) {
	c.events = append(c.events, "fields")
	assert.NotNil(c.t, w.Fields())
	assert.True(c.t, w.Cached(0, cl.DomainContext, cl.ContextNumDevices), "cache cleared before fields")
	w.SetFields(nil)
}

func (c *recordingClass) ReleaseNative(api cl.API, h cl.Handle) error {
	c.events = append(c.events, "native")
	// Runs under the registry lock, before the entry is removed.
	_, registered := c.r.wrappers[h]
	assert.True(c.t, registered)
	return api.Release(c.K, h)
}

func TestTeardownOrder(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	h := newContext(t, f)
	class := &recordingClass{BaseClass: BaseClass{K: cl.KindContext}, t: t, r: r}

	w := r.Wrap(h, class)
	r.Wrap(h, class)
	assert.Equal(t, []string{"init"}, class.events)
	assert.IsType(t, &argTable{}, w.Fields())

	_, err := w.Info(0, cl.DomainContext, cl.ContextNumDevices)
	require.NoError(t, err)

	_, _ = w.Unref()
	destroyed, err := w.Unref()
	require.NoError(t, err)
	assert.True(t, destroyed)
	assert.Equal(t, []string{"init", "fields", "native"}, class.events)
	assert.False(t, w.Cached(0, cl.DomainContext, cl.ContextNumDevices))
	assert.Nil(t, w.Fields())
}

func TestUnrefReportsNativeReleaseError(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	h := newContext(t, f)
	w := r.Wrap(h, contextClass)

	f.SetFailure("Release", cl.OutOfResources)
	destroyed, err := w.Unref()
	assert.True(t, destroyed)
	assert.True(t, cl.IsStatus(err, cl.OutOfResources))
	assert.Zero(t, r.Len())
}

func TestMemcheckAndCounts(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)

	ok, live := r.Memcheck()
	assert.True(t, ok)
	assert.Empty(t, live)

	ctx := r.Wrap(newContext(t, f), contextClass)
	dev := r.Wrap(f.Devices(f.Platforms()[1])[0], deviceClass)
	r.Wrap(dev.Handle(), deviceClass)

	ok, live = r.Memcheck()
	assert.False(t, ok)
	require.Len(t, live, 2)
	assert.Contains(t, live[0], "Context(")
	assert.Contains(t, live[1], "Device(")
	assert.Contains(t, live[1], "refs=2")
	assert.Equal(t, map[cl.Kind]int{cl.KindContext: 1, cl.KindDevice: 1}, r.Counts())

	_, _ = ctx.Unref()
	_, _ = dev.Unref()
	_, _ = dev.Unref()
	ok, _ = r.Memcheck()
	assert.True(t, ok)
}

func TestConcurrentWrapUnref(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)

	var handles []cl.Handle
	for i := 0; i < 4; i++ {
		handles = append(handles, newContext(t, f))
	}
	// Keep one reference per handle so teardown happens exactly once, at
	// the end.
	var held []*Wrapper
	for _, h := range handles {
		held = append(held, r.Wrap(h, contextClass))
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			h := handles[g%len(handles)]
			for i := 0; i < 200; i++ {
				w := r.Wrap(h, contextClass)
				w.Ref()
				_, _ = w.Unref()
				_, _ = w.Unref()
			}
		}(g)
	}
	wg.Wait()

	for i, w := range held {
		assert.Equal(t, 1, w.RefCount())
		destroyed, err := w.Unref()
		require.NoError(t, err)
		assert.True(t, destroyed)
		assert.Equal(t, 1, f.Releases(handles[i]))
	}
	assert.Zero(t, r.Len())
}
