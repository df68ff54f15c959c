//go:build gpu

package cl

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <stdlib.h>
#include <CL/cl.h>

static cl_int clkit_get_info(int domain, void *obj, void *secondary, cl_uint param,
		size_t size, void *value, size_t *size_ret) {
	switch (domain) {
	case 0: return clGetContextInfo((cl_context) obj, param, size, value, size_ret);
	case 1: return clGetDeviceInfo((cl_device_id) obj, param, size, value, size_ret);
	case 2: return clGetEventInfo((cl_event) obj, param, size, value, size_ret);
	case 3: return clGetEventProfilingInfo((cl_event) obj, param, size, value, size_ret);
	case 4: return clGetImageInfo((cl_mem) obj, param, size, value, size_ret);
	case 5: return clGetKernelInfo((cl_kernel) obj, param, size, value, size_ret);
	case 6: return clGetKernelArgInfo((cl_kernel) obj, (cl_uint) (size_t) secondary, param, size, value, size_ret);
	case 7: return clGetKernelWorkGroupInfo((cl_kernel) obj, (cl_device_id) secondary, param, size, value, size_ret);
	case 8: return clGetMemObjectInfo((cl_mem) obj, param, size, value, size_ret);
	case 9: return clGetPlatformInfo((cl_platform_id) obj, param, size, value, size_ret);
	case 10: return clGetProgramInfo((cl_program) obj, param, size, value, size_ret);
	case 11: return clGetProgramBuildInfo((cl_program) obj, (cl_device_id) secondary, param, size, value, size_ret);
	case 12: return clGetSamplerInfo((cl_sampler) obj, param, size, value, size_ret);
	case 13: return clGetCommandQueueInfo((cl_command_queue) obj, param, size, value, size_ret);
	default: return CL_INVALID_VALUE;
	}
}

static cl_int clkit_release(int kind, void *obj) {
	switch (kind) {
	case 0: case 4: return clReleaseMemObject((cl_mem) obj);
	case 1: return clReleaseContext((cl_context) obj);
	case 2: return clReleaseDevice((cl_device_id) obj);
	case 3: return clReleaseEvent((cl_event) obj);
	case 5: return clReleaseKernel((cl_kernel) obj);
	case 6: return CL_SUCCESS;
	case 7: return clReleaseProgram((cl_program) obj);
	case 8: return clReleaseSampler((cl_sampler) obj);
	case 9: return clReleaseCommandQueue((cl_command_queue) obj);
	default: return CL_INVALID_VALUE;
	}
}

static cl_context clkit_create_context(cl_uint n, const cl_device_id *devices, cl_int *status) {
	return clCreateContext(NULL, n, devices, NULL, NULL, status);
}

static void *clkit_ptr(size_t v) { return (void *) v; }
*/
import "C"

import (
	"unsafe"
)

type openCL struct{}

// Open returns the OpenCL implementation of API.
func Open() (API, error) {
	return openCL{}, nil
}

func ptr(h Handle) unsafe.Pointer {
	return C.clkit_ptr(C.size_t(h))
}

func (openCL) PlatformIDs() ([]Handle, error) {
	var count C.cl_uint
	status := C.clGetPlatformIDs(0, nil, &count)
	if err := NewStatusError("clGetPlatformIDs(count)", Status(status)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	ids := make([]C.cl_platform_id, int(count))
	status = C.clGetPlatformIDs(count, &ids[0], nil)
	if err := NewStatusError("clGetPlatformIDs(list)", Status(status)); err != nil {
		return nil, err
	}

	out := make([]Handle, len(ids))
	for i, id := range ids {
		out[i] = Handle(uintptr(unsafe.Pointer(id)))
	}
	return out, nil
}

func (openCL) DeviceIDs(platform Handle, typ DeviceType) ([]Handle, error) {
	pid := C.cl_platform_id(ptr(platform))

	var count C.cl_uint
	status := C.clGetDeviceIDs(pid, C.cl_device_type(typ), 0, nil, &count)
	if err := NewStatusError("clGetDeviceIDs(count)", Status(status)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, NewStatusError("clGetDeviceIDs(count)", DeviceNotFound)
	}

	ids := make([]C.cl_device_id, int(count))
	status = C.clGetDeviceIDs(pid, C.cl_device_type(typ), count, &ids[0], nil)
	if err := NewStatusError("clGetDeviceIDs(list)", Status(status)); err != nil {
		return nil, err
	}

	out := make([]Handle, len(ids))
	for i, id := range ids {
		out[i] = Handle(uintptr(unsafe.Pointer(id)))
	}
	return out, nil
}

func (openCL) GetInfo(domain InfoDomain, obj, secondary Handle, param Param, value []byte) (int, error) {
	var sizeRet C.size_t
	var buf unsafe.Pointer
	if len(value) > 0 {
		buf = C.malloc(C.size_t(len(value)))
		defer C.free(buf)
	}

	status := C.clkit_get_info(C.int(domain), ptr(obj), ptr(secondary), C.cl_uint(param),
		C.size_t(len(value)), buf, &sizeRet)
	if err := NewStatusError("clGetInfo("+domain.String()+")", Status(status)); err != nil {
		return 0, err
	}

	if buf != nil {
		copy(value, unsafe.Slice((*byte)(buf), len(value)))
	}
	return int(sizeRet), nil
}

func (openCL) Release(kind Kind, h Handle) error {
	status := C.clkit_release(C.int(kind), ptr(h))
	return NewStatusError("clRelease("+kind.String()+")", Status(status))
}

func (openCL) CreateContext(devices []Handle) (Handle, error) {
	if len(devices) == 0 {
		return 0, NewStatusError("clCreateContext", InvalidValue)
	}
	ids := make([]C.cl_device_id, len(devices))
	for i, d := range devices {
		ids[i] = C.cl_device_id(ptr(d))
	}

	var status C.cl_int
	ctx := C.clkit_create_context(C.cl_uint(len(ids)), &ids[0], &status)
	if err := NewStatusError("clCreateContext", Status(status)); err != nil {
		return 0, err
	}
	return Handle(uintptr(unsafe.Pointer(ctx))), nil
}

func (openCL) CreateProgramWithSource(context Handle, sources []string) (Handle, error) {
	if len(sources) == 0 {
		return 0, NewStatusError("clCreateProgramWithSource", InvalidValue)
	}
	strs := make([]*C.char, len(sources))
	for i, s := range sources {
		strs[i] = C.CString(s)
	}
	defer func() {
		for _, s := range strs {
			C.free(unsafe.Pointer(s))
		}
	}()

	var status C.cl_int
	prg := C.clCreateProgramWithSource(C.cl_context(ptr(context)), C.cl_uint(len(strs)),
		(**C.char)(unsafe.Pointer(&strs[0])), nil, &status)
	if err := NewStatusError("clCreateProgramWithSource", Status(status)); err != nil {
		return 0, err
	}
	return Handle(uintptr(unsafe.Pointer(prg))), nil
}

func (openCL) BuildProgram(program Handle, devices []Handle, options string) error {
	opts := C.CString(options)
	defer C.free(unsafe.Pointer(opts))

	var ids *C.cl_device_id
	if len(devices) > 0 {
		list := make([]C.cl_device_id, len(devices))
		for i, d := range devices {
			list[i] = C.cl_device_id(ptr(d))
		}
		ids = &list[0]
	}

	status := C.clBuildProgram(C.cl_program(ptr(program)), C.cl_uint(len(devices)), ids, opts, nil, nil)
	return NewStatusError("clBuildProgram", Status(status))
}

func (openCL) CreateKernel(program Handle, name string) (Handle, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var status C.cl_int
	k := C.clCreateKernel(C.cl_program(ptr(program)), cname, &status)
	if err := NewStatusError("clCreateKernel", Status(status)); err != nil {
		return 0, err
	}
	return Handle(uintptr(unsafe.Pointer(k))), nil
}
