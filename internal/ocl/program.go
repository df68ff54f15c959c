package ocl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// derived cache entry holding the build log of all devices
const buildLogKey = "program.build-log"

// Program is a wrapped program.
type Program struct {
	*wrapper.Wrapper
	s *Session
}

// CreateProgram creates a program from source strings.
func (c *Context) CreateProgram(sources ...string) (*Program, error) {
	h, err := c.s.api.CreateProgramWithSource(c.Handle(), sources)
	if err != nil {
		return nil, errors.Wrap(err, "create program")
	}
	return &Program{Wrapper: c.s.reg.Wrap(h, classes[cl.KindProgram]), s: c.s}, nil
}

// DeviceHandles returns the devices the program is associated with.
func (p *Program) DeviceHandles() ([]cl.Handle, error) {
	return wrapper.Array[cl.Handle](p.Wrapper, 0, cl.DomainProgram, cl.ProgramDevices)
}

// Build builds the program for all its devices. Build logs and statuses
// cached from an earlier build are dropped, whether or not this build
// succeeds.
func (p *Program) Build(options string) error {
	devices, err := p.DeviceHandles()
	if err != nil {
		return err
	}
	buildErr := p.s.api.BuildProgram(p.Handle(), nil, options)

	for _, d := range devices {
		p.Invalidate(d, cl.DomainProgramBuild, cl.ProgramBuildLog)
		p.Invalidate(d, cl.DomainProgramBuild, cl.ProgramBuildStatus)
		p.Invalidate(d, cl.DomainProgramBuild, cl.ProgramBuildOptions)
	}
	p.Invalidate(0, cl.DomainProgram, cl.ProgramNumKernels)
	p.Invalidate(0, cl.DomainProgram, cl.ProgramKernelNames)
	p.InvalidateDerived(buildLogKey)

	if buildErr != nil {
		return errors.Wrap(buildErr, "build program")
	}
	return nil
}

// BuildStatus returns the build status for one device.
func (p *Program) BuildStatus(device cl.Handle) (cl.BuildStatus, error) {
	return wrapper.Scalar[cl.BuildStatus](p.Wrapper, device, cl.DomainProgramBuild, cl.ProgramBuildStatus)
}

// DeviceBuildLog returns the build log for one device.
func (p *Program) DeviceBuildLog(device cl.Handle) (string, error) {
	return wrapper.String(p.Wrapper, device, cl.DomainProgramBuild, cl.ProgramBuildLog)
}

// BuildLog returns the build logs of all devices, each under a header naming
// the device. The result is derived from the per-device entries and is
// recomputed after every Build.
func (p *Program) BuildLog() (string, error) {
	if v, ok := p.Derived(buildLogKey); ok {
		return v.(string), nil
	}

	devices, err := p.DeviceHandles()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, h := range devices {
		d := p.s.WrapDevice(h)
		name, err := d.Name()
		_ = d.Release()
		if err != nil {
			return "", err
		}
		log, err := p.DeviceBuildLog(h)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "=== build log for device '%s' ===\n%s\n", name, log)
	}

	out := sb.String()
	p.StoreDerived(buildLogKey, out)
	return out, nil
}

// KernelNames returns the kernels of a built program.
func (p *Program) KernelNames() ([]string, error) {
	s, err := wrapper.String(p.Wrapper, 0, cl.DomainProgram, cl.ProgramKernelNames)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, ";"), nil
}

// Release drops the facade's reference.
func (p *Program) Release() error { return release(p.Wrapper) }
