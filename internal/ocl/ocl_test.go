package ocl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/cl/clfake"
)

const source = `
__kernel void scale(__global float *buf, const float factor) {}
__kernel void fill(__global int *dst, int value, uint n) {}
`

func newSession(t *testing.T) (*clfake.API, *Session) {
	t.Helper()
	f := clfake.NewDefault()
	s := NewSession(f)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return f, s
}

func releaseAll[T interface{ Release() error }](t *testing.T, xs []T) {
	t.Helper()
	for _, x := range xs {
		require.NoError(t, x.Release())
	}
}

func TestPlatformsAndDevices(t *testing.T) {
	_, s := newSession(t)

	platforms, err := s.Platforms()
	require.NoError(t, err)
	defer releaseAll(t, platforms)
	require.Len(t, platforms, 3)

	name, err := platforms[0].Name()
	require.NoError(t, err)
	assert.Equal(t, "clkit test platform #0", name)
	vendor, err := platforms[1].Vendor()
	require.NoError(t, err)
	assert.Equal(t, "FakenMC p1", vendor)

	devices, err := platforms[0].Devices()
	require.NoError(t, err)
	defer releaseAll(t, devices)
	require.Len(t, devices, 2)

	typ, err := devices[0].Type()
	require.NoError(t, err)
	assert.NotZero(t, typ&cl.DeviceTypeGPU)
	units, err := devices[1].ComputeUnits()
	require.NoError(t, err)
	assert.EqualValues(t, 8, units)
	mem, err := devices[1].GlobalMemSize()
	require.NoError(t, err)
	assert.EqualValues(t, 8<<30, mem)
	wg, err := devices[1].MaxWorkGroupSize()
	require.NoError(t, err)
	assert.EqualValues(t, 8192, wg)

	p, err := devices[0].Platform()
	require.NoError(t, err)
	assert.Same(t, platforms[0].Wrapper, p.Wrapper)
	assert.Equal(t, 2, p.RefCount())
	require.NoError(t, p.Release())
}

func TestDeviceRetain(t *testing.T) {
	f, s := newSession(t)
	d := s.WrapDevice(f.Devices(f.Platforms()[2])[0])
	d2 := d.Retain()
	assert.Equal(t, 2, d.RefCount())
	require.NoError(t, d.Release())
	name, err := d2.Name()
	require.NoError(t, err)
	assert.Equal(t, "clkit CPU device #2", name)
	require.NoError(t, d2.Release())
}

func buildProgram(t *testing.T, s *Session, f *clfake.API, src string) (*Context, []*Device, *Program) {
	t.Helper()
	devices := []*Device{}
	for _, h := range f.Devices(f.Platforms()[0]) {
		devices = append(devices, s.WrapDevice(h))
	}
	ctx, err := s.CreateContext(devices...)
	require.NoError(t, err)
	prg, err := ctx.CreateProgram(src)
	require.NoError(t, err)
	return ctx, devices, prg
}

func TestContextDevicesShareWrappers(t *testing.T) {
	f, s := newSession(t)
	ctx, devices, prg := buildProgram(t, s, f, source)
	defer releaseAll(t, devices)
	defer func() { require.NoError(t, ctx.Release()) }()
	defer func() { require.NoError(t, prg.Release()) }()

	n, err := ctx.NumDevices()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ctxDevices, err := ctx.Devices()
	require.NoError(t, err)
	defer releaseAll(t, ctxDevices)
	for i, d := range ctxDevices {
		assert.Same(t, devices[i].Wrapper, d.Wrapper)
	}
}

func TestProgramBuildLogIsRecomputed(t *testing.T) {
	f, s := newSession(t)
	ctx, devices, prg := buildProgram(t, s, f, source)
	defer releaseAll(t, devices)
	defer func() { require.NoError(t, ctx.Release()) }()
	defer func() { require.NoError(t, prg.Release()) }()

	require.NoError(t, prg.Build("-DFOO"))
	log1, err := prg.BuildLog()
	require.NoError(t, err)
	assert.Contains(t, log1, "=== build log for device 'clkit GPU device' ===")
	assert.Contains(t, log1, "=== build log for device 'clkit CPU device' ===")
	assert.Contains(t, log1, "build #1")

	again, err := prg.BuildLog()
	require.NoError(t, err)
	assert.Equal(t, log1, again)

	require.NoError(t, prg.Build(""))
	log2, err := prg.BuildLog()
	require.NoError(t, err)
	assert.Contains(t, log2, "build #2")
	assert.NotContains(t, log2, "build #1")

	dlog, err := prg.DeviceBuildLog(devices[1].Handle())
	require.NoError(t, err)
	assert.Contains(t, dlog, "build #2")

	status, err := prg.BuildStatus(devices[0].Handle())
	require.NoError(t, err)
	assert.Equal(t, cl.BuildSuccess, status)

	names, err := prg.KernelNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"scale", "fill"}, names)
}

func TestProgramBuildFailure(t *testing.T) {
	f, s := newSession(t)
	ctx, devices, prg := buildProgram(t, s, f, "#error broken\n"+source)
	defer releaseAll(t, devices)
	defer func() { require.NoError(t, ctx.Release()) }()
	defer func() { require.NoError(t, prg.Release()) }()

	err := prg.Build("")
	require.Error(t, err)
	assert.True(t, cl.IsStatus(err, cl.BuildProgramFailure))

	status, err := prg.BuildStatus(devices[0].Handle())
	require.NoError(t, err)
	assert.Equal(t, cl.BuildError, status)
	log, err := prg.BuildLog()
	require.NoError(t, err)
	assert.Contains(t, log, "#error")
}

func TestKernel(t *testing.T) {
	f, s := newSession(t)
	ctx, devices, prg := buildProgram(t, s, f, source)
	defer releaseAll(t, devices)
	defer func() { require.NoError(t, ctx.Release()) }()
	defer func() { require.NoError(t, prg.Release()) }()
	require.NoError(t, prg.Build(""))

	k, err := prg.CreateKernel("fill")
	require.NoError(t, err)

	name, err := k.Name()
	require.NoError(t, err)
	assert.Equal(t, "fill", name)
	n, err := k.NumArgs()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	want := []struct{ name, typ string }{{"dst", "int*"}, {"value", "int"}, {"n", "uint"}}
	for i, w := range want {
		an, err := k.ArgName(uint32(i))
		require.NoError(t, err)
		at, err := k.ArgTypeName(uint32(i))
		require.NoError(t, err)
		assert.Equal(t, w.name, an)
		assert.Equal(t, w.typ, at)
	}

	wg, err := k.WorkGroupSize(devices[0])
	require.NoError(t, err)
	assert.EqualValues(t, 512, wg)

	k.SetArg(2, []byte{1, 0, 0, 0})
	k.SetArg(0, []byte{0})
	assert.Equal(t, []uint32{0, 2}, k.PendingArgs())

	kh := k.Handle()
	require.NoError(t, k.Release())
	assert.Equal(t, 1, f.Releases(kh))
	assert.Nil(t, k.Fields())

	_, err = prg.CreateKernel("nope")
	assert.True(t, cl.IsStatus(err, cl.InvalidKernelName))
}

func TestGenericWrap(t *testing.T) {
	f, s := newSession(t)
	h, err := f.CreateContext(f.Devices(f.Platforms()[1]))
	require.NoError(t, err)

	w, err := s.Wrap(h, cl.KindContext)
	require.NoError(t, err)
	assert.Equal(t, cl.KindContext, w.Kind())
	_, err = w.Unref()
	require.NoError(t, err)

	_, err = s.Wrap(h, cl.KindNone)
	assert.Error(t, err)

	for _, k := range []cl.Kind{cl.KindQueue, cl.KindEvent, cl.KindBuffer, cl.KindImage, cl.KindSampler} {
		c, ok := ClassOf(k)
		require.True(t, ok)
		assert.Equal(t, k, c.Kind())
	}
}

func TestCloseReportsLeaks(t *testing.T) {
	f := clfake.NewDefault()
	s := NewSession(f)
	d := s.WrapDevice(f.Devices(f.Platforms()[0])[0])
	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Device(")
	require.NoError(t, d.Release())
	assert.NoError(t, s.Close())
}
