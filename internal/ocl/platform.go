package ocl

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// Platform is a wrapped platform.
type Platform struct {
	*wrapper.Wrapper
	s *Session
}

// WrapPlatform wraps a platform handle.
func (s *Session) WrapPlatform(h cl.Handle) *Platform {
	return &Platform{Wrapper: s.reg.Wrap(h, classes[cl.KindPlatform]), s: s}
}

// Platforms wraps every platform reported by the native API, in order.
func (s *Session) Platforms() ([]*Platform, error) {
	hs, err := s.api.PlatformIDs()
	if err != nil {
		return nil, errors.Wrap(err, "list platforms")
	}
	return wrapAll(s, hs, cl.KindPlatform, func(w *wrapper.Wrapper) *Platform {
		return &Platform{Wrapper: w, s: s}
	}), nil
}

func (p *Platform) info(param cl.Param) (string, error) {
	return wrapper.String(p.Wrapper, 0, cl.DomainPlatform, param)
}

func (p *Platform) Name() (string, error)       { return p.info(cl.PlatformName) }
func (p *Platform) Vendor() (string, error)     { return p.info(cl.PlatformVendor) }
func (p *Platform) Version() (string, error)    { return p.info(cl.PlatformVersion) }
func (p *Platform) Profile() (string, error)    { return p.info(cl.PlatformProfile) }
func (p *Platform) Extensions() (string, error) { return p.info(cl.PlatformExtensions) }

// Devices wraps every device of the platform. Platforms without devices
// return an empty slice.
func (p *Platform) Devices() ([]*Device, error) {
	hs, err := p.s.api.DeviceIDs(p.Handle(), cl.DeviceTypeAll)
	if cl.IsStatus(err, cl.DeviceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}
	return wrapAll(p.s, hs, cl.KindDevice, func(w *wrapper.Wrapper) *Device {
		return &Device{Wrapper: w, s: p.s}
	}), nil
}

// Release drops the facade's reference.
func (p *Platform) Release() error { return release(p.Wrapper) }
