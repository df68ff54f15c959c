package ocl

import (
	"maps"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// pendingArgs holds argument values set on a kernel but not yet sent to the
// native API. It is the kernel's kind-specific field.
type pendingArgs struct {
	mu     sync.Mutex
	values map[uint32][]byte
}

type kernelClass struct{ wrapper.BaseClass }

func (kernelClass) Kind() cl.Kind { return cl.KindKernel }

func (kernelClass) InitFields(w *wrapper.Wrapper) {
	w.SetFields(&pendingArgs{values: make(map[uint32][]byte)})
}

func (kernelClass) ReleaseFields(w *wrapper.Wrapper) {
	if args, ok := w.Fields().(*pendingArgs); ok {
		args.mu.Lock()
		clear(args.values)
		args.mu.Unlock()
	}
	w.SetFields(nil)
}

func (kernelClass) ReleaseNative(api cl.API, h cl.Handle) error {
	return api.Release(cl.KindKernel, h)
}

// Kernel is a wrapped kernel.
type Kernel struct {
	*wrapper.Wrapper
	s *Session
}

// CreateKernel creates the named kernel of a built program.
func (p *Program) CreateKernel(name string) (*Kernel, error) {
	h, err := p.s.api.CreateKernel(p.Handle(), name)
	if err != nil {
		return nil, errors.Wrapf(err, "create kernel %q", name)
	}
	return &Kernel{Wrapper: p.s.reg.Wrap(h, classes[cl.KindKernel]), s: p.s}, nil
}

func (k *Kernel) Name() (string, error) {
	return wrapper.String(k.Wrapper, 0, cl.DomainKernel, cl.KernelFunctionName)
}

func (k *Kernel) NumArgs() (uint32, error) {
	return wrapper.Scalar[uint32](k.Wrapper, 0, cl.DomainKernel, cl.KernelNumArgs)
}

// ArgName returns the name of argument index. Argument info is cached per
// index.
func (k *Kernel) ArgName(index uint32) (string, error) {
	return wrapper.String(k.Wrapper, cl.Handle(index), cl.DomainKernelArg, cl.KernelArgName)
}

func (k *Kernel) ArgTypeName(index uint32) (string, error) {
	return wrapper.String(k.Wrapper, cl.Handle(index), cl.DomainKernelArg, cl.KernelArgTypeName)
}

// WorkGroupSize returns the maximum work-group size of the kernel on device.
func (k *Kernel) WorkGroupSize(device *Device) (uint64, error) {
	v, err := wrapper.Scalar[uintptr](k.Wrapper, device.Handle(), cl.DomainKernelWorkGroup, cl.KernelWorkGroupSize)
	return uint64(v), err
}

// SetArg records the raw value of an argument until the next enqueue.
func (k *Kernel) SetArg(index uint32, value []byte) {
	args := k.Fields().(*pendingArgs)
	args.mu.Lock()
	defer args.mu.Unlock()
	args.values[index] = slices.Clone(value)
}

// PendingArgs returns the indices of recorded arguments, sorted.
func (k *Kernel) PendingArgs() []uint32 {
	args := k.Fields().(*pendingArgs)
	args.mu.Lock()
	defer args.mu.Unlock()
	return slices.Sorted(maps.Keys(args.values))
}

// Release drops the facade's reference.
func (k *Kernel) Release() error { return release(k.Wrapper) }
