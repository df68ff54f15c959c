// Package clfake is an in-memory implementation of cl.API.
//
// It models a configurable set of platforms and devices, contexts, programs
// with per-device build logs and kernels with argument metadata. Every native
// call is counted so tests can observe exactly how often the native API was
// hit, and failures can be injected per operation.
package clfake

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unsafe"

	"github.com/cwbudde/clkit/internal/cl"
)

// DeviceSpec describes a fake device.
type DeviceSpec struct {
	Name          string
	Vendor        string
	Version       string
	DriverVersion string
	Type          cl.DeviceType
	ComputeUnits  uint32
	GlobalMem     uint64
	MaxWorkGroup  uint64
}

// PlatformSpec describes a fake platform and its devices.
type PlatformSpec struct {
	Name       string
	Vendor     string
	Version    string
	Profile    string
	Extensions string
	Devices    []DeviceSpec
}

// InfoCall identifies one attribute query target.
type InfoCall struct {
	Domain    cl.InfoDomain
	Obj       cl.Handle
	Secondary cl.Handle
	Param     cl.Param
}

type object struct {
	kind     cl.Kind
	released bool

	platform *PlatformSpec
	device   *DeviceSpec
	parent   cl.Handle // platform of a device, context of a program, program of a kernel
	devices  []cl.Handle

	source      string
	buildLogs   map[cl.Handle]string
	buildStatus map[cl.Handle]cl.BuildStatus
	builds      int

	kernelName string
	args       []kernelArg
}

type kernelArg struct {
	name     string
	typeName string
	address  uint32
}

// API is the fake native API. The zero value is not usable; use New.
type API struct {
	mu sync.Mutex

	platforms   []cl.Handle
	objects     map[cl.Handle]*object
	next        cl.Handle
	calls       map[string]int
	infoCalls   map[InfoCall]int
	releases    map[cl.Handle]int
	unsupported map[cl.InfoDomain]map[cl.Param]bool
	failures    map[string]cl.Status
}

// New builds a fake API exposing the given platforms in order.
func New(platforms ...PlatformSpec) *API {
	f := &API{
		objects:     make(map[cl.Handle]*object),
		next:        0x1000,
		calls:       make(map[string]int),
		infoCalls:   make(map[InfoCall]int),
		releases:    make(map[cl.Handle]int),
		unsupported: make(map[cl.InfoDomain]map[cl.Param]bool),
		failures:    make(map[string]cl.Status),
	}
	for i := range platforms {
		p := platforms[i]
		ph := f.alloc(&object{kind: cl.KindPlatform, platform: &p})
		f.platforms = append(f.platforms, ph)
		for j := range p.Devices {
			dh := f.alloc(&object{kind: cl.KindDevice, device: &p.Devices[j], parent: ph})
			f.objects[ph].devices = append(f.objects[ph].devices, dh)
		}
	}
	return f
}

// NewDefault returns the reference system: three platforms whose devices are
// {GPU, CPU}, {Accelerator} and {CPU}.
func NewDefault() *API {
	return New(DefaultPlatforms()...)
}

// DefaultPlatforms returns the platform specs used by NewDefault.
func DefaultPlatforms() []PlatformSpec {
	return []PlatformSpec{
		{
			Name: "clkit test platform #0", Vendor: "FakenMC p0", Version: "OpenCL 1.2",
			Profile: "FULL_PROFILE", Extensions: "cl_khr_icd cl_khr_gl_sharing",
			Devices: []DeviceSpec{
				{Name: "clkit GPU device", Vendor: "FakenMC", Version: "OpenCL 1.2 clkit",
					DriverVersion: "1.0.gpu", Type: cl.DeviceTypeGPU | cl.DeviceTypeDefault,
					ComputeUnits: 16, GlobalMem: 1 << 30, MaxWorkGroup: 512},
				{Name: "clkit CPU device", Vendor: "FakenMC", Version: "OpenCL 1.2 clkit",
					DriverVersion: "1.0.cpu", Type: cl.DeviceTypeCPU,
					ComputeUnits: 8, GlobalMem: 8 << 30, MaxWorkGroup: 8192},
			},
		},
		{
			Name: "clkit test platform #1", Vendor: "FakenMC p1", Version: "OpenCL 1.1",
			Profile: "FULL_PROFILE", Extensions: "cl_khr_icd",
			Devices: []DeviceSpec{
				{Name: "clkit Accelerator device", Vendor: "FakenMC", Version: "OpenCL 1.1 clkit",
					DriverVersion: "1.0.acc", Type: cl.DeviceTypeAccelerator,
					ComputeUnits: 64, GlobalMem: 4 << 30, MaxWorkGroup: 1024},
			},
		},
		{
			Name: "clkit test platform #2", Vendor: "FakenMC p2", Version: "OpenCL 1.2",
			Profile: "EMBEDDED_PROFILE", Extensions: "cl_khr_icd",
			Devices: []DeviceSpec{
				{Name: "clkit CPU device #2", Vendor: "OtherVendor", Version: "OpenCL 1.2 other",
					DriverVersion: "2.0.cpu", Type: cl.DeviceTypeCPU,
					ComputeUnits: 4, GlobalMem: 2 << 30, MaxWorkGroup: 4096},
			},
		},
	}
}

func (f *API) alloc(o *object) cl.Handle {
	h := f.next
	f.next += 0x10
	f.objects[h] = o
	return h
}

// SetUnsupported makes queries of param in domain fail with CL_INVALID_VALUE,
// the way a driver answers for a parameter it does not know.
func (f *API) SetUnsupported(domain cl.InfoDomain, param cl.Param) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsupported[domain] == nil {
		f.unsupported[domain] = make(map[cl.Param]bool)
	}
	f.unsupported[domain][param] = true
}

// SetFailure makes every call of op (a method name of cl.API) fail with
// status until ClearFailure is called.
func (f *API) SetFailure(op string, status cl.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = status
}

// ClearFailure removes an injected failure.
func (f *API) ClearFailure(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// Calls returns how many times op was invoked.
func (f *API) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// InfoCalls returns how many GetInfo calls (size and value) hit c.
func (f *API) InfoCalls(c InfoCall) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls[c]
}

// Releases returns how many times h was released.
func (f *API) Releases(h cl.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases[h]
}

// Platforms returns the platform handles without counting a native call.
func (f *API) Platforms() []cl.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cl.Handle(nil), f.platforms...)
}

// Devices returns the device handles of a platform without counting a
// native call.
func (f *API) Devices(platform cl.Handle) []cl.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.objects[platform]; ok {
		return append([]cl.Handle(nil), o.devices...)
	}
	return nil
}

// enter counts the call and reports an injected failure, if any. f.mu must
// be held.
func (f *API) enter(op string) error {
	f.calls[op]++
	if s, ok := f.failures[op]; ok {
		return cl.NewStatusError(op, s)
	}
	return nil
}

func (f *API) PlatformIDs() ([]cl.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PlatformIDs"); err != nil {
		return nil, err
	}
	return append([]cl.Handle(nil), f.platforms...), nil
}

func (f *API) DeviceIDs(platform cl.Handle, typ cl.DeviceType) ([]cl.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeviceIDs"); err != nil {
		return nil, err
	}
	p, ok := f.objects[platform]
	if !ok || p.kind != cl.KindPlatform {
		return nil, cl.NewStatusError("DeviceIDs", cl.InvalidPlatform)
	}
	var out []cl.Handle
	for _, d := range p.devices {
		if f.objects[d].device.Type&typ != 0 {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, cl.NewStatusError("DeviceIDs", cl.DeviceNotFound)
	}
	return out, nil
}

func (f *API) GetInfo(domain cl.InfoDomain, obj, secondary cl.Handle, param cl.Param, value []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls[InfoCall{Domain: domain, Obj: obj, Secondary: secondary, Param: param}]++
	if err := f.enter("GetInfo"); err != nil {
		return 0, err
	}
	if f.unsupported[domain][param] {
		return 0, cl.NewStatusError("GetInfo", cl.InvalidValue)
	}

	o, ok := f.objects[obj]
	if !ok || o.released {
		return 0, cl.NewStatusError("GetInfo", invalidStatus(domain))
	}
	data, status := f.value(domain, o, secondary, param)
	if status != cl.Success {
		return 0, cl.NewStatusError("GetInfo", status)
	}

	if value == nil {
		return len(data), nil
	}
	if len(value) < len(data) {
		return 0, cl.NewStatusError("GetInfo", cl.InvalidValue)
	}
	copy(value, data)
	return len(data), nil
}

func (f *API) Release(kind cl.Kind, h cl.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Release"); err != nil {
		return err
	}
	f.releases[h]++
	o, ok := f.objects[h]
	if !ok || o.kind != kind {
		return cl.NewStatusError("Release", cl.InvalidValue)
	}
	switch kind {
	case cl.KindPlatform, cl.KindDevice:
		// Root devices and platforms are not reference counted.
		return nil
	}
	if o.released {
		return cl.NewStatusError("Release", releaseStatus(kind))
	}
	o.released = true
	return nil
}

func (f *API) CreateContext(devices []cl.Handle) (cl.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateContext"); err != nil {
		return 0, err
	}
	if len(devices) == 0 {
		return 0, cl.NewStatusError("CreateContext", cl.InvalidValue)
	}
	for _, d := range devices {
		if o, ok := f.objects[d]; !ok || o.kind != cl.KindDevice {
			return 0, cl.NewStatusError("CreateContext", cl.InvalidDevice)
		}
	}
	return f.alloc(&object{kind: cl.KindContext, devices: append([]cl.Handle(nil), devices...)}), nil
}

func (f *API) CreateProgramWithSource(context cl.Handle, sources []string) (cl.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateProgramWithSource"); err != nil {
		return 0, err
	}
	ctx, ok := f.objects[context]
	if !ok || ctx.kind != cl.KindContext || ctx.released {
		return 0, cl.NewStatusError("CreateProgramWithSource", cl.InvalidContext)
	}
	if len(sources) == 0 {
		return 0, cl.NewStatusError("CreateProgramWithSource", cl.InvalidValue)
	}
	return f.alloc(&object{
		kind:        cl.KindProgram,
		parent:      context,
		devices:     ctx.devices,
		source:      strings.Join(sources, "\n"),
		buildLogs:   make(map[cl.Handle]string),
		buildStatus: make(map[cl.Handle]cl.BuildStatus),
	}), nil
}

// BuildProgram "compiles" the program: a source containing "#error" fails
// with CL_BUILD_PROGRAM_FAILURE. Every build rewrites the per-device logs.
func (f *API) BuildProgram(program cl.Handle, devices []cl.Handle, options string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("BuildProgram"); err != nil {
		return err
	}
	p, ok := f.objects[program]
	if !ok || p.kind != cl.KindProgram || p.released {
		return cl.NewStatusError("BuildProgram", cl.InvalidProgram)
	}
	if len(devices) == 0 {
		devices = p.devices
	}
	p.builds++
	failed := strings.Contains(p.source, "#error")
	for _, d := range devices {
		if failed {
			p.buildLogs[d] = fmt.Sprintf("build #%d: error: #error directive", p.builds)
			p.buildStatus[d] = cl.BuildError
		} else {
			p.buildLogs[d] = fmt.Sprintf("build #%d: ok (options %q)", p.builds, options)
			p.buildStatus[d] = cl.BuildSuccess
		}
	}
	if failed {
		return cl.NewStatusError("BuildProgram", cl.BuildProgramFailure)
	}
	return nil
}

var kernelDecl = regexp.MustCompile(`(?:__)?kernel\s+void\s+(\w+)\s*\(([^)]*)\)`)

func (f *API) CreateKernel(program cl.Handle, name string) (cl.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateKernel"); err != nil {
		return 0, err
	}
	p, ok := f.objects[program]
	if !ok || p.kind != cl.KindProgram || p.released {
		return 0, cl.NewStatusError("CreateKernel", cl.InvalidProgram)
	}
	if p.builds == 0 {
		return 0, cl.NewStatusError("CreateKernel", cl.InvalidProgramExecutable)
	}
	for _, m := range kernelDecl.FindAllStringSubmatch(p.source, -1) {
		if m[1] == name {
			return f.alloc(&object{kind: cl.KindKernel, parent: program, kernelName: name, args: parseArgs(m[2])}), nil
		}
	}
	return 0, cl.NewStatusError("CreateKernel", cl.InvalidKernelName)
}

func parseArgs(decl string) []kernelArg {
	var args []kernelArg
	for _, part := range strings.Split(decl, ",") {
		fields := strings.Fields(strings.ReplaceAll(part, "*", " * "))
		if len(fields) == 0 {
			continue
		}
		arg := kernelArg{name: fields[len(fields)-1], address: addressPrivate}
		var typ []string
		for _, tok := range fields[:len(fields)-1] {
			switch tok {
			case "__global", "global":
				arg.address = addressGlobal
			case "__local", "local":
				arg.address = addressLocal
			case "__constant", "constant":
				arg.address = addressConstant
			case "const", "restrict", "volatile":
			default:
				typ = append(typ, tok)
			}
		}
		arg.typeName = strings.Join(typ, "")
		args = append(args, arg)
	}
	return args
}

// Kernel argument address qualifiers.
const (
	addressGlobal   uint32 = 0x119B
	addressLocal    uint32 = 0x119C
	addressConstant uint32 = 0x119D
	addressPrivate  uint32 = 0x119E
)

func invalidStatus(domain cl.InfoDomain) cl.Status {
	switch domain {
	case cl.DomainPlatform:
		return cl.InvalidPlatform
	case cl.DomainDevice:
		return cl.InvalidDevice
	case cl.DomainContext:
		return cl.InvalidContext
	case cl.DomainProgram, cl.DomainProgramBuild:
		return cl.InvalidProgram
	case cl.DomainKernel, cl.DomainKernelArg, cl.DomainKernelWorkGroup:
		return cl.InvalidKernel
	case cl.DomainQueue:
		return cl.InvalidCommandQueue
	case cl.DomainEvent, cl.DomainEventProfiling:
		return cl.InvalidEvent
	case cl.DomainSampler:
		return cl.InvalidSampler
	default:
		return cl.InvalidMemObject
	}
}

func releaseStatus(kind cl.Kind) cl.Status {
	switch kind {
	case cl.KindContext:
		return cl.InvalidContext
	case cl.KindProgram:
		return cl.InvalidProgram
	case cl.KindKernel:
		return cl.InvalidKernel
	case cl.KindQueue:
		return cl.InvalidCommandQueue
	case cl.KindEvent:
		return cl.InvalidEvent
	case cl.KindSampler:
		return cl.InvalidSampler
	default:
		return cl.InvalidMemObject
	}
}

// Encode returns the native in-memory representation of v, the same bytes a
// native query would write for a scalar of type T.
func Encode[T any](v T) []byte {
	n := int(unsafe.Sizeof(v))
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), n))
	return out
}

func encodeSlice[T any](vs []T) []byte {
	var out []byte
	for _, v := range vs {
		out = append(out, Encode(v)...)
	}
	return out
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}
