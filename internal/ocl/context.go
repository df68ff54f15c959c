package ocl

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// Context is a wrapped context.
type Context struct {
	*wrapper.Wrapper
	s *Session
}

// CreateContext creates a native context over devices and wraps it.
func (s *Session) CreateContext(devices ...*Device) (*Context, error) {
	hs := make([]cl.Handle, len(devices))
	for i, d := range devices {
		hs[i] = d.Handle()
	}
	h, err := s.api.CreateContext(hs)
	if err != nil {
		return nil, errors.Wrap(err, "create context")
	}
	return &Context{Wrapper: s.reg.Wrap(h, classes[cl.KindContext]), s: s}, nil
}

// Devices wraps the devices of the context.
func (c *Context) Devices() ([]*Device, error) {
	hs, err := wrapper.Array[cl.Handle](c.Wrapper, 0, cl.DomainContext, cl.ContextDevices)
	if err != nil {
		return nil, err
	}
	return wrapAll(c.s, hs, cl.KindDevice, func(w *wrapper.Wrapper) *Device {
		return &Device{Wrapper: w, s: c.s}
	}), nil
}

func (c *Context) NumDevices() (uint32, error) {
	return wrapper.Scalar[uint32](c.Wrapper, 0, cl.DomainContext, cl.ContextNumDevices)
}

// Release drops the facade's reference.
func (c *Context) Release() error { return release(c.Wrapper) }
