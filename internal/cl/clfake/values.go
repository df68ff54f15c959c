package clfake

import (
	"slices"
	"strings"

	"github.com/cwbudde/clkit/internal/cl"
)

// Kernel argument access qualifier reported for every argument.
const accessNone uint32 = 0x11A3

// value renders the native answer to a query. f.mu must be held.
func (f *API) value(domain cl.InfoDomain, o *object, secondary cl.Handle, param cl.Param) ([]byte, cl.Status) {
	switch domain {
	case cl.DomainPlatform:
		if o.kind == cl.KindPlatform {
			return platformValue(o.platform, param)
		}
	case cl.DomainDevice:
		if o.kind == cl.KindDevice {
			return deviceValue(o.device, o.parent, param)
		}
	case cl.DomainContext:
		if o.kind == cl.KindContext {
			return contextValue(o, param)
		}
	case cl.DomainProgram:
		if o.kind == cl.KindProgram {
			return f.programValue(o, param)
		}
	case cl.DomainProgramBuild:
		if o.kind == cl.KindProgram {
			return programBuildValue(o, secondary, param)
		}
	case cl.DomainKernel:
		if o.kind == cl.KindKernel {
			return f.kernelValue(o, param)
		}
	case cl.DomainKernelArg:
		if o.kind == cl.KindKernel {
			return kernelArgValue(o, int(secondary), param)
		}
	case cl.DomainKernelWorkGroup:
		if o.kind == cl.KindKernel {
			return f.kernelWorkGroupValue(secondary, param)
		}
	default:
		return nil, cl.InvalidValue
	}
	return nil, invalidStatus(domain)
}

func platformValue(p *PlatformSpec, param cl.Param) ([]byte, cl.Status) {
	switch param {
	case cl.PlatformProfile:
		return cstr(p.Profile), cl.Success
	case cl.PlatformVersion:
		return cstr(p.Version), cl.Success
	case cl.PlatformName:
		return cstr(p.Name), cl.Success
	case cl.PlatformVendor:
		return cstr(p.Vendor), cl.Success
	case cl.PlatformExtensions:
		return cstr(p.Extensions), cl.Success
	}
	return nil, cl.InvalidValue
}

func deviceValue(d *DeviceSpec, platform cl.Handle, param cl.Param) ([]byte, cl.Status) {
	switch param {
	case cl.DeviceTypeInfo:
		return Encode(uint64(d.Type)), cl.Success
	case cl.DeviceVendorID:
		return Encode(uint32(0xFA4E)), cl.Success
	case cl.DeviceMaxComputeUnits:
		return Encode(d.ComputeUnits), cl.Success
	case cl.DeviceMaxWorkItemDims:
		return Encode(uint32(3)), cl.Success
	case cl.DeviceMaxWorkGroupSize:
		return Encode(uintptr(d.MaxWorkGroup)), cl.Success
	case cl.DeviceMaxWorkItemSizes:
		wg := uintptr(d.MaxWorkGroup)
		return encodeSlice([]uintptr{wg, wg, 64}), cl.Success
	case cl.DeviceMaxClockFrequency:
		return Encode(uint32(1000)), cl.Success
	case cl.DeviceMaxMemAllocSize:
		return Encode(d.GlobalMem / 4), cl.Success
	case cl.DeviceGlobalMemSize:
		return Encode(d.GlobalMem), cl.Success
	case cl.DeviceLocalMemSize:
		return Encode(uint64(32 << 10)), cl.Success
	case cl.DeviceAvailable:
		return Encode(uint32(1)), cl.Success
	case cl.DeviceName:
		return cstr(d.Name), cl.Success
	case cl.DeviceVendor:
		return cstr(d.Vendor), cl.Success
	case cl.DeviceDriverVersion:
		return cstr(d.DriverVersion), cl.Success
	case cl.DeviceProfile:
		return cstr("FULL_PROFILE"), cl.Success
	case cl.DeviceVersion:
		return cstr(d.Version), cl.Success
	case cl.DeviceExtensions:
		return cstr("cl_khr_fp64"), cl.Success
	case cl.DevicePlatform:
		return Encode(uintptr(platform)), cl.Success
	case cl.DeviceOpenCLCVersion:
		return cstr("OpenCL C 1.2"), cl.Success
	case cl.DeviceBuiltInKernels:
		// No built-in kernels: the driver reports zero bytes.
		return nil, cl.Success
	}
	return nil, cl.InvalidValue
}

func contextValue(o *object, param cl.Param) ([]byte, cl.Status) {
	switch param {
	case cl.ContextReferenceCount:
		return Encode(uint32(1)), cl.Success
	case cl.ContextDevices:
		return encodeSlice(o.devices), cl.Success
	case cl.ContextNumDevices:
		return Encode(uint32(len(o.devices))), cl.Success
	case cl.ContextProperties:
		return nil, cl.Success
	}
	return nil, cl.InvalidValue
}

func (f *API) programValue(o *object, param cl.Param) ([]byte, cl.Status) {
	switch param {
	case cl.ProgramReferenceCount:
		return Encode(uint32(1)), cl.Success
	case cl.ProgramContext:
		return Encode(uintptr(o.parent)), cl.Success
	case cl.ProgramNumDevices:
		return Encode(uint32(len(o.devices))), cl.Success
	case cl.ProgramDevices:
		return encodeSlice(o.devices), cl.Success
	case cl.ProgramSource:
		return cstr(o.source), cl.Success
	case cl.ProgramNumKernels, cl.ProgramKernelNames:
		if o.builds == 0 {
			return nil, cl.InvalidProgramExecutable
		}
		var names []string
		for _, m := range kernelDecl.FindAllStringSubmatch(o.source, -1) {
			names = append(names, m[1])
		}
		if param == cl.ProgramNumKernels {
			return Encode(uintptr(len(names))), cl.Success
		}
		return cstr(strings.Join(names, ";")), cl.Success
	}
	return nil, cl.InvalidValue
}

func programBuildValue(o *object, device cl.Handle, param cl.Param) ([]byte, cl.Status) {
	if !slices.Contains(o.devices, device) {
		return nil, cl.InvalidDevice
	}
	switch param {
	case cl.ProgramBuildStatus:
		status, ok := o.buildStatus[device]
		if !ok {
			status = cl.BuildNone
		}
		return Encode(int32(status)), cl.Success
	case cl.ProgramBuildOptions:
		return cstr(""), cl.Success
	case cl.ProgramBuildLog:
		return cstr(o.buildLogs[device]), cl.Success
	}
	return nil, cl.InvalidValue
}

func (f *API) kernelValue(o *object, param cl.Param) ([]byte, cl.Status) {
	switch param {
	case cl.KernelFunctionName:
		return cstr(o.kernelName), cl.Success
	case cl.KernelNumArgs:
		return Encode(uint32(len(o.args))), cl.Success
	case cl.KernelReferenceCount:
		return Encode(uint32(1)), cl.Success
	case cl.KernelContext:
		return Encode(uintptr(f.objects[o.parent].parent)), cl.Success
	case cl.KernelProgram:
		return Encode(uintptr(o.parent)), cl.Success
	case cl.KernelAttributes:
		return cstr(""), cl.Success
	}
	return nil, cl.InvalidValue
}

func kernelArgValue(o *object, index int, param cl.Param) ([]byte, cl.Status) {
	if index < 0 || index >= len(o.args) {
		return nil, cl.InvalidArgIndex
	}
	arg := o.args[index]
	switch param {
	case cl.KernelArgAddressQualifier:
		return Encode(arg.address), cl.Success
	case cl.KernelArgAccessQualifier:
		return Encode(accessNone), cl.Success
	case cl.KernelArgTypeName:
		return cstr(arg.typeName), cl.Success
	case cl.KernelArgTypeQualifier:
		return Encode(uint64(0)), cl.Success
	case cl.KernelArgName:
		return cstr(arg.name), cl.Success
	}
	return nil, cl.InvalidValue
}

func (f *API) kernelWorkGroupValue(device cl.Handle, param cl.Param) ([]byte, cl.Status) {
	d, ok := f.objects[device]
	if !ok || d.kind != cl.KindDevice {
		return nil, cl.InvalidDevice
	}
	switch param {
	case cl.KernelWorkGroupSize:
		return Encode(uintptr(d.device.MaxWorkGroup)), cl.Success
	case cl.KernelCompileWorkGroupSize:
		return encodeSlice([]uintptr{0, 0, 0}), cl.Success
	case cl.KernelLocalMemSize, cl.KernelPrivateMemSize:
		return Encode(uint64(0)), cl.Success
	case cl.KernelPreferredWGSizeMult:
		return Encode(uintptr(32)), cl.Success
	}
	return nil, cl.InvalidValue
}
