package devsel

import (
	"fmt"
	"strings"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
)

// Type keeps devices whose type bitmask intersects mask.
func Type(mask cl.DeviceType) Filter {
	return NewIndependent("type="+typeName(mask), func(c Candidate) (bool, error) {
		return c.Type&mask != 0, nil
	})
}

func typeName(mask cl.DeviceType) string {
	if mask == cl.DeviceTypeAll {
		return "all"
	}
	var parts []string
	for _, t := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU, cl.DeviceTypeAccelerator,
		cl.DeviceTypeCustom, cl.DeviceTypeDefault} {
		if mask&t != 0 {
			parts = append(parts, strings.ToLower(t.String()))
		}
	}
	return strings.Join(parts, "|")
}

func GPU() Filter         { return Type(cl.DeviceTypeGPU) }
func CPU() Filter         { return Type(cl.DeviceTypeCPU) }
func Accelerator() Filter { return Type(cl.DeviceTypeAccelerator) }

// Match keeps devices whose name, vendor or platform name contains text,
// ignoring case. The three are checked in that order and only as far as
// needed.
func Match(text string) Filter {
	needle := strings.ToLower(text)
	return NewIndependent("match="+text, func(c Candidate) (bool, error) {
		getters := []func() (string, error){c.Device.Name, c.Device.Vendor, c.Platform.Name}
		for _, get := range getters {
			s, err := get()
			if err != nil {
				return false, err
			}
			if strings.Contains(strings.ToLower(s), needle) {
				return true, nil
			}
		}
		return false, nil
	})
}

// Platform keeps devices of the given platform.
func Platform(h cl.Handle) Filter {
	return NewIndependent(fmt.Sprintf("platform=%#x", uintptr(h)), func(c Candidate) (bool, error) {
		return c.DeviceRecord.Platform == h, nil
	})
}

// PlatformIndex keeps devices of the platform at position i of the platform
// list.
func PlatformIndex(i int) Filter {
	return NewIndependent(fmt.Sprintf("platform=%d", i), func(c Candidate) (bool, error) {
		return c.PlatformIndex == i, nil
	})
}

// SamePlatform keeps the devices that share the platform of the first
// candidate.
func SamePlatform() Filter {
	return NewDependent("same-platform", func(cands []Candidate) ([]Candidate, error) {
		if len(cands) == 0 {
			return nil, nil
		}
		p := cands[0].DeviceRecord.Platform
		var out []Candidate
		for _, c := range cands {
			if c.DeviceRecord.Platform == p {
				out = append(out, c)
			}
		}
		return out, nil
	})
}

// MajorityPlatform keeps the devices of the platform with the most
// candidates. Ties go to the platform enumerated first.
func MajorityPlatform() Filter {
	return NewDependent("majority-platform", func(cands []Candidate) ([]Candidate, error) {
		return majorityPlatform(cands), nil
	})
}

func majorityPlatform(cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, c := range cands {
		counts[c.PlatformIndex]++
	}
	best := -1
	for pi, n := range counts {
		if best < 0 || n > counts[best] || (n == counts[best] && pi < best) {
			best = pi
		}
	}
	var out []Candidate
	for _, c := range cands {
		if c.PlatformIndex == best {
			out = append(out, c)
		}
	}
	return out
}

// Index keeps only the candidate at position i. An empty list stays empty;
// an index outside a non-empty list is an errs.DeviceNotFound error.
func Index(i int) Filter {
	return NewDependent(fmt.Sprintf("index=%d", i), func(cands []Candidate) ([]Candidate, error) {
		if len(cands) == 0 {
			return nil, nil
		}
		if i < 0 || i >= len(cands) {
			return nil, errs.New(errs.DeviceNotFound, "index", "no device found at index %d", i)
		}
		return []Candidate{cands[i]}, nil
	})
}
