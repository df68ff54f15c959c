package devsel

import (
	"fmt"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/ocl"
)

// DeviceStrings renders candidates as "<i>. <device name> [<platform name>]",
// i being the position in cands.
func DeviceStrings(cands []Candidate) ([]string, error) {
	out := make([]string, len(cands))
	for i, c := range cands {
		name, err := c.Device.Name()
		if err != nil {
			return nil, err
		}
		pname, err := c.Platform.Name()
		if err != nil {
			return nil, err
		}
		out[i] = fmt.Sprintf("%d. %s [%s]", i, name, pname)
	}
	return out, nil
}

// ListDevices renders the whole enumeration with DeviceStrings.
func ListDevices(s *ocl.Session) ([]string, error) {
	cands, err := Candidates(s)
	if err != nil {
		return nil, err
	}
	defer ReleaseCandidates(cands)
	return DeviceStrings(cands)
}

// DeviceInfo summarizes one enumerated device.
type DeviceInfo struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	Vendor        string `json:"vendor"`
	Version       string `json:"version"`
	Type          string `json:"type"`
	Platform      string `json:"platform"`
	PlatformIndex int    `json:"platform_index"`
	ComputeUnits  uint32 `json:"compute_units,omitempty"`
	GlobalMem     uint64 `json:"global_mem,omitempty"`
}

// Describe gathers the DeviceInfo of a candidate. Numeric attributes the
// device cannot report are left zero.
func Describe(c Candidate) (DeviceInfo, error) {
	info := DeviceInfo{
		Index:         c.Index,
		Type:          c.Type.String(),
		PlatformIndex: c.PlatformIndex,
	}
	var err error
	if info.Name, err = c.Device.Name(); err != nil {
		return info, err
	}
	if info.Vendor, err = c.Device.Vendor(); err != nil {
		return info, err
	}
	if info.Version, err = c.Device.Version(); err != nil {
		return info, err
	}
	if info.Platform, err = c.Platform.Name(); err != nil {
		return info, err
	}
	if info.ComputeUnits, err = c.Device.ComputeUnits(); err != nil && !errs.Is(err, errs.InfoUnavailable) {
		return info, err
	}
	if info.GlobalMem, err = c.Device.GlobalMemSize(); err != nil && !errs.Is(err, errs.InfoUnavailable) {
		return info, err
	}
	return info, nil
}

// Inventory describes every enumerated device.
func Inventory(s *ocl.Session) ([]DeviceInfo, error) {
	cands, err := Candidates(s)
	if err != nil {
		return nil, err
	}
	defer ReleaseCandidates(cands)

	out := make([]DeviceInfo, len(cands))
	for i, c := range cands {
		if out[i], err = Describe(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeviceAt wraps the device at position index of the enumeration. The
// caller owns the returned reference.
func DeviceAt(s *ocl.Session, index int) (*ocl.Device, error) {
	records, err := Enumerate(s.API())
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(records) {
		return nil, errs.New(errs.DeviceNotFound, "device", "no device found at index %d", index)
	}
	return s.WrapDevice(records[index].Device), nil
}

// TypeNames maps the names accepted by ParseType to device types.
var TypeNames = map[string]cl.DeviceType{
	"gpu":         cl.DeviceTypeGPU,
	"cpu":         cl.DeviceTypeCPU,
	"accel":       cl.DeviceTypeAccelerator,
	"accelerator": cl.DeviceTypeAccelerator,
	"custom":      cl.DeviceTypeCustom,
	"default":     cl.DeviceTypeDefault,
	"all":         cl.DeviceTypeAll,
}
