package cl

// Platform parameters.
const (
	PlatformProfile    Param = 0x0900
	PlatformVersion    Param = 0x0901
	PlatformName       Param = 0x0902
	PlatformVendor     Param = 0x0903
	PlatformExtensions Param = 0x0904
)

// Device parameters.
const (
	DeviceTypeInfo          Param = 0x1000
	DeviceVendorID          Param = 0x1001
	DeviceMaxComputeUnits   Param = 0x1002
	DeviceMaxWorkItemDims   Param = 0x1003
	DeviceMaxWorkGroupSize  Param = 0x1004
	DeviceMaxWorkItemSizes  Param = 0x1005
	DeviceMaxClockFrequency Param = 0x100C
	DeviceMaxMemAllocSize   Param = 0x1010
	DeviceGlobalMemSize     Param = 0x101F
	DeviceLocalMemSize      Param = 0x1023
	DeviceAvailable         Param = 0x1027
	DeviceName              Param = 0x102B
	DeviceVendor            Param = 0x102C
	DeviceDriverVersion     Param = 0x102D
	DeviceProfile           Param = 0x102E
	DeviceVersion           Param = 0x102F
	DeviceExtensions        Param = 0x1030
	DevicePlatform          Param = 0x1031
	DeviceOpenCLCVersion    Param = 0x103D
	DeviceBuiltInKernels    Param = 0x103F
)

// Context parameters.
const (
	ContextReferenceCount Param = 0x1080
	ContextDevices        Param = 0x1081
	ContextProperties     Param = 0x1082
	ContextNumDevices     Param = 0x1083
)

// Queue parameters.
const (
	QueueContext        Param = 0x1090
	QueueDevice         Param = 0x1091
	QueueReferenceCount Param = 0x1092
	QueueProperties     Param = 0x1093
)

// Memory object and image parameters.
const (
	MemType               Param = 0x1100
	MemFlags              Param = 0x1101
	MemSize               Param = 0x1102
	ImageFormat           Param = 0x1110
	ImageWidth            Param = 0x1114
	ImageHeight           Param = 0x1115
	SamplerReferenceCount Param = 0x1150
)

// Program parameters.
const (
	ProgramReferenceCount Param = 0x1160
	ProgramContext        Param = 0x1161
	ProgramNumDevices     Param = 0x1162
	ProgramDevices        Param = 0x1163
	ProgramSource         Param = 0x1164
	ProgramBinarySizes    Param = 0x1165
	ProgramNumKernels     Param = 0x1167
	ProgramKernelNames    Param = 0x1168
)

// Program build parameters, queried per device.
const (
	ProgramBuildStatus  Param = 0x1181
	ProgramBuildOptions Param = 0x1182
	ProgramBuildLog     Param = 0x1183
)

// Kernel parameters.
const (
	KernelFunctionName   Param = 0x1190
	KernelNumArgs        Param = 0x1191
	KernelReferenceCount Param = 0x1192
	KernelContext        Param = 0x1193
	KernelProgram        Param = 0x1194
	KernelAttributes     Param = 0x1195
)

// Kernel argument parameters, queried per argument index.
const (
	KernelArgAddressQualifier Param = 0x1196
	KernelArgAccessQualifier  Param = 0x1197
	KernelArgTypeName         Param = 0x1198
	KernelArgTypeQualifier    Param = 0x1199
	KernelArgName             Param = 0x119A
)

// Kernel work-group parameters, queried per device.
const (
	KernelWorkGroupSize        Param = 0x11B0
	KernelCompileWorkGroupSize Param = 0x11B1
	KernelLocalMemSize         Param = 0x11B2
	KernelPreferredWGSizeMult  Param = 0x11B3
	KernelPrivateMemSize       Param = 0x11B4
)

// Event parameters.
const (
	EventCommandQueue           Param = 0x11D0
	EventCommandType            Param = 0x11D1
	EventReferenceCount         Param = 0x11D2
	EventCommandExecutionStatus Param = 0x11D3
	ProfilingCommandQueued      Param = 0x1280
	ProfilingCommandSubmit      Param = 0x1281
	ProfilingCommandStart       Param = 0x1282
	ProfilingCommandEnd         Param = 0x1283
)

// BuildStatus values reported for ProgramBuildStatus.
type BuildStatus int32

const (
	BuildSuccess    BuildStatus = 0
	BuildNone       BuildStatus = -1
	BuildError      BuildStatus = -2
	BuildInProgress BuildStatus = -3
)
