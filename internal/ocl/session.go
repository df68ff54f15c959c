// Package ocl provides typed facades over wrapped native objects: platforms,
// devices, contexts, programs and kernels, plus classes for the remaining
// object kinds.
//
// Every facade value holds one reference on its wrapper. Call Release when
// done with it; wrapping the same handle twice yields facades sharing one
// wrapper.
package ocl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// Session binds a native API to the wrapper registry used for its handles.
type Session struct {
	api cl.API
	reg *wrapper.Registry
}

// NewSession creates a session with its own registry.
func NewSession(api cl.API, opts ...wrapper.Option) *Session {
	return &Session{api: api, reg: wrapper.NewRegistry(api, opts...)}
}

// API returns the native API.
func (s *Session) API() cl.API { return s.api }

// Registry returns the wrapper registry.
func (s *Session) Registry() *wrapper.Registry { return s.reg }

// Close reports wrappers that are still alive. It does not release them.
func (s *Session) Close() error {
	if ok, live := s.reg.Memcheck(); !ok {
		return fmt.Errorf("%d wrapper(s) still alive: %s", len(live), strings.Join(live, ", "))
	}
	return nil
}

var classes = map[cl.Kind]wrapper.Class{
	cl.KindBuffer:   wrapper.BaseClass{K: cl.KindBuffer},
	cl.KindContext:  wrapper.BaseClass{K: cl.KindContext},
	cl.KindDevice:   wrapper.BaseClass{K: cl.KindDevice},
	cl.KindEvent:    wrapper.BaseClass{K: cl.KindEvent},
	cl.KindImage:    wrapper.BaseClass{K: cl.KindImage},
	cl.KindKernel:   kernelClass{},
	cl.KindPlatform: wrapper.BaseClass{K: cl.KindPlatform},
	cl.KindProgram:  wrapper.BaseClass{K: cl.KindProgram},
	cl.KindSampler:  wrapper.BaseClass{K: cl.KindSampler},
	cl.KindQueue:    wrapper.BaseClass{K: cl.KindQueue},
}

// ClassOf returns the class used for kind.
func ClassOf(kind cl.Kind) (wrapper.Class, bool) {
	c, ok := classes[kind]
	return c, ok
}

// Wrap wraps a handle of any kind. Typed constructors below are preferred
// where they exist.
func (s *Session) Wrap(h cl.Handle, kind cl.Kind) (*wrapper.Wrapper, error) {
	c, ok := classes[kind]
	if !ok {
		return nil, errors.Errorf("no class for kind %s", kind)
	}
	return s.reg.Wrap(h, c), nil
}

func release(w *wrapper.Wrapper) error {
	_, err := w.Unref()
	return err
}

func wrapAll[T any](s *Session, hs []cl.Handle, kind cl.Kind, mk func(*wrapper.Wrapper) T) []T {
	out := make([]T, len(hs))
	for i, h := range hs {
		out[i] = mk(s.reg.Wrap(h, classes[kind]))
	}
	return out
}
