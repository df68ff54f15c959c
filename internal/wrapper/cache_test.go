package wrapper

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/cl/clfake"
	"github.com/cwbudde/clkit/internal/errs"
)

func firstDevice(t *testing.T) (*clfake.API, *Registry, *Wrapper) {
	t.Helper()
	f := clfake.NewDefault()
	r := NewRegistry(f)
	w := r.Wrap(f.Devices(f.Platforms()[0])[0], deviceClass)
	t.Cleanup(func() { _, _ = w.Unref() })
	return f, r, w
}

func nameCall(w *Wrapper) clfake.InfoCall {
	return clfake.InfoCall{Domain: cl.DomainDevice, Obj: w.Handle(), Param: cl.DeviceName}
}

func TestInfoIsCached(t *testing.T) {
	f, _, w := firstDevice(t)

	first, err := w.Info(0, cl.DomainDevice, cl.DeviceName)
	require.NoError(t, err)
	assert.Equal(t, 2, f.InfoCalls(nameCall(w)), "size query plus value query")

	second, err := w.Info(0, cl.DomainDevice, cl.DeviceName)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, 2, f.InfoCalls(nameCall(w)), "second call must not query")
}

func TestInfoKeyDiscrimination(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	devices := f.Devices(f.Platforms()[0])

	ctx, err := f.CreateContext(devices)
	require.NoError(t, err)
	prg, err := f.CreateProgramWithSource(ctx, []string{"kernel void k(global int *in, global int *out) {}"})
	require.NoError(t, err)
	require.NoError(t, f.BuildProgram(prg, nil, ""))
	kh, err := f.CreateKernel(prg, "k")
	require.NoError(t, err)

	k := r.Wrap(kh, BaseClass{K: cl.KindKernel})
	arg0, err := String(k, 0, cl.DomainKernelArg, cl.KernelArgName)
	require.NoError(t, err)
	arg1, err := String(k, 1, cl.DomainKernelArg, cl.KernelArgName)
	require.NoError(t, err)
	assert.Equal(t, "in", arg0)
	assert.Equal(t, "out", arg1)

	// Same param, different domain.
	numArgs, err := Scalar[uint32](k, 0, cl.DomainKernel, cl.KernelNumArgs)
	require.NoError(t, err)
	assert.EqualValues(t, 2, numArgs)

	// Work-group info keyed per device.
	for _, d := range devices {
		wg, err := Scalar[uintptr](k, d, cl.DomainKernelWorkGroup, cl.KernelWorkGroupSize)
		require.NoError(t, err)
		assert.NotZero(t, wg)
	}
	assert.True(t, k.Cached(devices[0], cl.DomainKernelWorkGroup, cl.KernelWorkGroupSize))
	assert.True(t, k.Cached(devices[1], cl.DomainKernelWorkGroup, cl.KernelWorkGroupSize))
	assert.False(t, k.Cached(0, cl.DomainKernelWorkGroup, cl.KernelWorkGroupSize))
}

func TestInfoUnavailableIsNotCached(t *testing.T) {
	f, _, w := firstDevice(t)
	f.SetUnsupported(cl.DomainDevice, cl.DeviceOpenCLCVersion)
	call := clfake.InfoCall{Domain: cl.DomainDevice, Obj: w.Handle(), Param: cl.DeviceOpenCLCVersion}

	_, err := w.Info(0, cl.DomainDevice, cl.DeviceOpenCLCVersion)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InfoUnavailable))
	assert.False(t, errors.Is(err, cl.ErrNative), "info unavailable must not look like a native failure")
	assert.Equal(t, 1, f.InfoCalls(call))

	_, err = w.Info(0, cl.DomainDevice, cl.DeviceOpenCLCVersion)
	assert.True(t, errs.Is(err, errs.InfoUnavailable))
	assert.Equal(t, 2, f.InfoCalls(call), "failure must be re-queried")
}

func TestEmptyAnswerIsUnavailable(t *testing.T) {
	_, _, w := firstDevice(t)

	_, err := w.Info(0, cl.DomainDevice, cl.DeviceBuiltInKernels)
	assert.True(t, errs.Is(err, errs.InfoUnavailable))

	v, err := Scalar[uint32](w, 0, cl.DomainDevice, cl.DeviceBuiltInKernels)
	assert.Error(t, err)
	assert.Zero(t, v)

	a, err := Array[uint32](w, 0, cl.DomainDevice, cl.DeviceBuiltInKernels)
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestNativeFailureIsNotCached(t *testing.T) {
	f, _, w := firstDevice(t)

	f.SetFailure("GetInfo", cl.OutOfResources)
	_, err := w.Info(0, cl.DomainDevice, cl.DeviceVendor)
	require.Error(t, err)
	assert.True(t, cl.IsStatus(err, cl.OutOfResources))
	assert.False(t, errs.Is(err, errs.InfoUnavailable))
	assert.False(t, w.Cached(0, cl.DomainDevice, cl.DeviceVendor))

	f.ClearFailure("GetInfo")
	vendor, err := String(w, 0, cl.DomainDevice, cl.DeviceVendor)
	require.NoError(t, err)
	assert.Equal(t, "FakenMC", vendor)
}

func TestRefreshAndInvalidate(t *testing.T) {
	f := clfake.NewDefault()
	r := NewRegistry(f)
	devices := f.Devices(f.Platforms()[0])
	ctx, err := f.CreateContext(devices)
	require.NoError(t, err)
	prg, err := f.CreateProgramWithSource(ctx, []string{"kernel void k() {}"})
	require.NoError(t, err)
	w := r.Wrap(prg, BaseClass{K: cl.KindProgram})

	require.NoError(t, f.BuildProgram(prg, nil, ""))
	log1, err := String(w, devices[0], cl.DomainProgramBuild, cl.ProgramBuildLog)
	require.NoError(t, err)

	require.NoError(t, f.BuildProgram(prg, nil, ""))
	stale, err := String(w, devices[0], cl.DomainProgramBuild, cl.ProgramBuildLog)
	require.NoError(t, err)
	assert.Equal(t, log1, stale)

	fresh, err := w.RefreshInfo(devices[0], cl.DomainProgramBuild, cl.ProgramBuildLog)
	require.NoError(t, err)
	assert.NotEqual(t, log1, DecodeString(fresh))

	require.NoError(t, f.BuildProgram(prg, nil, ""))
	w.Invalidate(devices[0], cl.DomainProgramBuild, cl.ProgramBuildLog)
	log3, err := String(w, devices[0], cl.DomainProgramBuild, cl.ProgramBuildLog)
	require.NoError(t, err)
	assert.Contains(t, log3, "build #3")
}

func TestDerived(t *testing.T) {
	_, _, w := firstDevice(t)

	_, ok := w.Derived("summary")
	assert.False(t, ok)
	w.StoreDerived("summary", "gpu/16")
	v, ok := w.Derived("summary")
	assert.True(t, ok)
	assert.Equal(t, "gpu/16", v)
	w.InvalidateDerived("summary")
	_, ok = w.Derived("summary")
	assert.False(t, ok)
}

func TestConcurrentMissesQueryOnce(t *testing.T) {
	f, _, w := firstDevice(t)

	var wg sync.WaitGroup
	results := make([][]byte, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := w.Info(0, cl.DomainDevice, cl.DeviceName)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, f.InfoCalls(nameCall(w)))
	for _, v := range results[1:] {
		assert.Same(t, &results[0][0], &v[0])
	}
}

func TestTypedViews(t *testing.T) {
	f, r, w := firstDevice(t)

	units, err := Scalar[uint32](w, 0, cl.DomainDevice, cl.DeviceMaxComputeUnits)
	require.NoError(t, err)
	assert.EqualValues(t, 16, units)

	typ, err := Scalar[cl.DeviceType](w, 0, cl.DomainDevice, cl.DeviceTypeInfo)
	require.NoError(t, err)
	assert.Equal(t, "GPU", typ.String())

	sizes, err := Array[uintptr](w, 0, cl.DomainDevice, cl.DeviceMaxWorkItemSizes)
	require.NoError(t, err)
	assert.Len(t, sizes, 3)

	ctxH, err := f.CreateContext(f.Devices(f.Platforms()[0]))
	require.NoError(t, err)
	ctx := r.Wrap(ctxH, contextClass)
	devices, err := Array[cl.Handle](ctx, 0, cl.DomainContext, cl.ContextDevices)
	require.NoError(t, err)
	assert.Equal(t, f.Devices(f.Platforms()[0]), devices)
	_, _ = ctx.Unref()

	_, err = DecodeScalar[uint64]([]byte{1, 2})
	assert.True(t, errs.Is(err, errs.InvalidData))
	_, err = DecodeArray[uint32]([]byte{1, 2, 3})
	assert.True(t, errs.Is(err, errs.InvalidData))
	assert.Equal(t, "abc", DecodeString([]byte("abc\x00\x00")))
	assert.Equal(t, "abc", DecodeString([]byte("abc")))
}
