package devsel

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/ocl"
)

// Apply runs the chain over cands and returns the survivors. It neither
// wraps nor releases anything.
//
// Dependent filters run even when an earlier stage left nothing; a
// dependent filter returning a candidate that was not in its input, or the
// same candidate twice, is an errs.InvalidData error.
func Apply(cands []Candidate, chain *Chain) ([]Candidate, error) {
	w := cands
	if chain == nil {
		return w, nil
	}
	for _, f := range chain.filters {
		var err error
		if f.IsDependent() {
			w, err = applyDependent(f, w)
		} else {
			w, err = applyIndependent(f, w)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "filter %s", f.Name)
		}
	}
	return w, nil
}

func applyIndependent(f Filter, in []Candidate) ([]Candidate, error) {
	var out []Candidate
	for _, c := range in {
		keep, err := f.Independent(c)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}

func applyDependent(f Filter, in []Candidate) ([]Candidate, error) {
	out, err := f.Dependent(in)
	if err != nil {
		return nil, err
	}
	present := make(map[cl.Handle]bool, len(in))
	for _, c := range in {
		present[c.Device.Handle()] = true
	}
	for _, c := range out {
		h := c.Device.Handle()
		if !present[h] {
			return nil, errs.New(errs.InvalidData, "apply", "device %#x was not a candidate", uintptr(h))
		}
		// Clearing marks duplicates too.
		present[h] = false
	}
	return out, nil
}

// Selection is the result of Select: devices of one platform, in chain
// order. It holds one reference on each wrapper; call Release when done.
type Selection struct {
	Platform *ocl.Platform
	Devices  []*ocl.Device
	Records  []DeviceRecord
}

// Release drops the selection's references and returns the first error.
func (s *Selection) Release() error {
	var first error
	for _, d := range s.Devices {
		if err := d.Release(); err != nil && first == nil {
			first = err
		}
	}
	if s.Platform != nil {
		if err := s.Platform.Release(); err != nil && first == nil {
			first = err
		}
	}
	s.Devices, s.Platform, s.Records = nil, nil, nil
	return first
}

// Candidates enumerates the devices and wraps each of them together with
// its platform. Release the result with ReleaseCandidates.
func Candidates(s *ocl.Session) ([]Candidate, error) {
	records, err := Enumerate(s.API())
	if err != nil {
		return nil, err
	}
	cands := make([]Candidate, len(records))
	for i, r := range records {
		cands[i] = Candidate{
			DeviceRecord: r,
			Device:       s.WrapDevice(r.Device),
			Platform:     s.WrapPlatform(r.Platform),
		}
	}
	return cands, nil
}

// ReleaseCandidates drops the references held by cands.
func ReleaseCandidates(cands []Candidate) error {
	var first error
	for _, c := range cands {
		if err := c.Device.Release(); err != nil && first == nil {
			first = err
		}
		if err := c.Platform.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Select enumerates the devices, runs the chain and restricts the result to
// a single platform (the one with most survivors, ties to the platform
// enumerated first). Candidates that do not make it are released.
//
// An empty result is an errs.DeviceNotFound error.
func Select(s *ocl.Session, chain *Chain) (*Selection, error) {
	cands, err := Candidates(s)
	if err != nil {
		return nil, err
	}

	kept, err := Apply(cands, chain)
	if err != nil {
		_ = ReleaseCandidates(cands)
		return nil, err
	}
	kept = majorityPlatform(kept)

	keep := make(map[cl.Handle]bool, len(kept))
	for _, c := range kept {
		keep[c.Device.Handle()] = true
	}
	var dropped []Candidate
	for _, c := range cands {
		if !keep[c.Device.Handle()] {
			dropped = append(dropped, c)
		}
	}
	if err := ReleaseCandidates(dropped); err != nil {
		_ = ReleaseCandidates(kept)
		return nil, err
	}

	if len(kept) == 0 {
		return nil, errs.New(errs.DeviceNotFound, "select", "no device matches constraints %q", chain.String())
	}

	sel := &Selection{Platform: kept[0].Platform}
	var releaseErr error
	for i, c := range kept {
		sel.Devices = append(sel.Devices, c.Device)
		sel.Records = append(sel.Records, c.DeviceRecord)
		// One platform reference is enough.
		if i > 0 {
			if err := c.Platform.Release(); err != nil && releaseErr == nil {
				releaseErr = err
			}
		}
	}
	if releaseErr != nil {
		_ = sel.Release()
		return nil, releaseErr
	}
	return sel, nil
}
