// Package devsel enumerates the devices visible through the native API and
// narrows them down with a chain of filters.
//
// Independent filters judge one candidate at a time and keep the candidate
// order. Dependent filters see the whole candidate list and may drop,
// reorder or reduce it, e.g. to the device at an index or to the one a user
// picks from a menu. Whatever the chain, a non-empty selection always comes
// from a single platform.
package devsel

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// DeviceRecord is one (platform, device) pair of the enumeration.
type DeviceRecord struct {
	Platform cl.Handle
	Device   cl.Handle
	Type     cl.DeviceType

	// PlatformIndex is the position of the platform in the platform list;
	// Index the position of the device in the flattened enumeration.
	PlatformIndex int
	Index         int
}

// Enumerate lists every device of every platform in the order reported by
// the native API. Platforms that report no devices are skipped.
//
// It returns an errs.NoPlatforms error when there is no platform or no
// device at all, and native errors wrapped otherwise. Nothing is cached
// between calls.
func Enumerate(api cl.API) ([]DeviceRecord, error) {
	platforms, err := api.PlatformIDs()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate platforms")
	}
	if len(platforms) == 0 {
		return nil, errs.New(errs.NoPlatforms, "enumerate", "no platforms found")
	}

	var records []DeviceRecord
	for pi, p := range platforms {
		devices, err := api.DeviceIDs(p, cl.DeviceTypeAll)
		if cl.IsStatus(err, cl.DeviceNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "enumerate devices of platform %d", pi)
		}
		for _, d := range devices {
			raw, err := wrapper.Query(api, cl.DomainDevice, d, 0, cl.DeviceTypeInfo)
			if err != nil {
				return nil, errors.WithMessagef(err, "type of device %d", len(records))
			}
			typ, err := wrapper.DecodeScalar[cl.DeviceType](raw)
			if err != nil {
				return nil, err
			}
			records = append(records, DeviceRecord{
				Platform:      p,
				Device:        d,
				Type:          typ,
				PlatformIndex: pi,
				Index:         len(records),
			})
		}
	}
	if len(records) == 0 {
		return nil, errs.New(errs.NoPlatforms, "enumerate", "no devices found on %d platform(s)", len(platforms))
	}
	return records, nil
}
