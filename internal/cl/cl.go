// Package cl describes the native, handle-based compute API that the rest of
// clkit wraps: platforms, devices, contexts, programs, kernels, memory
// objects, command queues and events.
//
// Nothing in this package dereferences a Handle. Handles are compared by
// value only, which is what lets the wrapper registry key on them.
//
// The real OpenCL binding is compiled in with '-tags gpu'. Without the tag
// Open returns ErrNotBuilt and callers are expected to fall back to the
// in-memory implementation in package clfake.
package cl

import (
	"errors"
	"fmt"
)

// ErrNotBuilt indicates the binary was built without OpenCL support.
var ErrNotBuilt = errors.New("opencl support requires building with '-tags gpu'")

// Handle is an opaque identifier for a native resource.
type Handle uintptr

// Kind identifies which kind of native object a handle refers to. It selects
// the native release call and names the wrapper in diagnostics.
type Kind int

const (
	KindBuffer Kind = iota
	KindContext
	KindDevice
	KindEvent
	KindImage
	KindKernel
	KindPlatform
	KindProgram
	KindSampler
	KindQueue
	KindNone
)

var kindNames = [...]string{"Buffer", "Context", "Device", "Event", "Image",
	"Kernel", "Platform", "Program", "Sampler", "Queue", "None"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// InfoDomain selects the native query function used for an attribute query,
// and therefore how a Param value is interpreted.
type InfoDomain int

const (
	DomainContext InfoDomain = iota
	DomainDevice
	DomainEvent
	DomainEventProfiling
	DomainImage
	DomainKernel
	DomainKernelArg       // secondary handle is the argument index
	DomainKernelWorkGroup // secondary handle is a device
	DomainMemObject
	DomainPlatform
	DomainProgram
	DomainProgramBuild // secondary handle is a device
	DomainSampler
	DomainQueue
	// DomainDerived marks cache entries computed from other entries rather
	// than fetched from the native API.
	DomainDerived
)

var domainNames = [...]string{"context", "device", "event", "event-profiling",
	"image", "kernel", "kernel-arg", "kernel-work-group", "mem-object",
	"platform", "program", "program-build", "sampler", "queue", "derived"}

func (d InfoDomain) String() string {
	if d < 0 || int(d) >= len(domainNames) {
		return fmt.Sprintf("InfoDomain(%d)", int(d))
	}
	return domainNames[d]
}

// Param is a parameter identifier from the native API's enumeration space.
type Param uint32

// DeviceType is the native device type bitmask.
type DeviceType uint64

const (
	DeviceTypeDefault     DeviceType = 1 << 0
	DeviceTypeCPU         DeviceType = 1 << 1
	DeviceTypeGPU         DeviceType = 1 << 2
	DeviceTypeAccelerator DeviceType = 1 << 3
	DeviceTypeCustom      DeviceType = 1 << 4
	DeviceTypeAll         DeviceType = 0xFFFFFFFF
)

// String returns the most specific class of the device, in the order GPU,
// CPU, Accelerator, Custom, Default.
func (t DeviceType) String() string {
	switch {
	case t == DeviceTypeAll:
		return "All"
	case t&DeviceTypeGPU != 0:
		return "GPU"
	case t&DeviceTypeCPU != 0:
		return "CPU"
	case t&DeviceTypeAccelerator != 0:
		return "Accelerator"
	case t&DeviceTypeCustom != 0:
		return "Custom"
	case t&DeviceTypeDefault != 0:
		return "Default"
	default:
		return "Unknown"
	}
}

// API is the native API surface. Every method either succeeds or returns a
// *StatusError carrying the native status code.
type API interface {
	// PlatformIDs lists the platforms in the order reported by the driver.
	PlatformIDs() ([]Handle, error)

	// DeviceIDs lists the devices of typ in platform. A platform without
	// matching devices answers with DeviceNotFound.
	DeviceIDs(platform Handle, typ DeviceType) ([]Handle, error)

	// GetInfo implements the two-call query protocol: with a nil value it
	// only reports the size in bytes of param; otherwise it fills value,
	// which must be at least that size, and reports the size again.
	// The secondary handle is ignored by domains that do not take one.
	GetInfo(domain InfoDomain, obj, secondary Handle, param Param, value []byte) (int, error)

	// Release destroys the native resource h of the given kind.
	Release(kind Kind, h Handle) error

	CreateContext(devices []Handle) (Handle, error)
	CreateProgramWithSource(context Handle, sources []string) (Handle, error)
	BuildProgram(program Handle, devices []Handle, options string) error
	CreateKernel(program Handle, name string) (Handle, error)
}
