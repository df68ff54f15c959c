package ocl

import (
	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// Device is a wrapped device.
type Device struct {
	*wrapper.Wrapper
	s *Session
}

// WrapDevice wraps a device handle.
func (s *Session) WrapDevice(h cl.Handle) *Device {
	return &Device{Wrapper: s.reg.Wrap(h, classes[cl.KindDevice]), s: s}
}

func (d *Device) str(param cl.Param) (string, error) {
	return wrapper.String(d.Wrapper, 0, cl.DomainDevice, param)
}

func (d *Device) Name() (string, error)          { return d.str(cl.DeviceName) }
func (d *Device) Vendor() (string, error)        { return d.str(cl.DeviceVendor) }
func (d *Device) Version() (string, error)       { return d.str(cl.DeviceVersion) }
func (d *Device) DriverVersion() (string, error) { return d.str(cl.DeviceDriverVersion) }
func (d *Device) Extensions() (string, error)    { return d.str(cl.DeviceExtensions) }

// Type returns the device type bitmask.
func (d *Device) Type() (cl.DeviceType, error) {
	return wrapper.Scalar[cl.DeviceType](d.Wrapper, 0, cl.DomainDevice, cl.DeviceTypeInfo)
}

func (d *Device) ComputeUnits() (uint32, error) {
	return wrapper.Scalar[uint32](d.Wrapper, 0, cl.DomainDevice, cl.DeviceMaxComputeUnits)
}

// GlobalMemSize returns the global memory size in bytes.
func (d *Device) GlobalMemSize() (uint64, error) {
	return wrapper.Scalar[uint64](d.Wrapper, 0, cl.DomainDevice, cl.DeviceGlobalMemSize)
}

func (d *Device) MaxWorkGroupSize() (uint64, error) {
	v, err := wrapper.Scalar[uintptr](d.Wrapper, 0, cl.DomainDevice, cl.DeviceMaxWorkGroupSize)
	return uint64(v), err
}

// PlatformHandle returns the handle of the platform the device belongs to.
func (d *Device) PlatformHandle() (cl.Handle, error) {
	return wrapper.Scalar[cl.Handle](d.Wrapper, 0, cl.DomainDevice, cl.DevicePlatform)
}

// Platform wraps the device's platform. The caller owns the returned
// reference.
func (d *Device) Platform() (*Platform, error) {
	h, err := d.PlatformHandle()
	if err != nil {
		return nil, err
	}
	return d.s.WrapPlatform(h), nil
}

// Retain returns a new facade holding its own reference on the same
// wrapper.
func (d *Device) Retain() *Device {
	d.Ref()
	return &Device{Wrapper: d.Wrapper, s: d.s}
}

// Release drops the facade's reference.
func (d *Device) Release() error { return release(d.Wrapper) }
