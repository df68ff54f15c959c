package devsel

import (
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/cwbudde/clkit/internal/ocl"
)

// Candidate is a device under selection. It holds one reference on the
// device wrapper and one on its platform wrapper.
type Candidate struct {
	DeviceRecord
	Device   *ocl.Device
	Platform *ocl.Platform
}

// IndependentFunc judges a single candidate.
type IndependentFunc func(c Candidate) (bool, error)

// DependentFunc maps the whole candidate list to a new one. It must only
// return candidates taken from its input.
type DependentFunc func(cands []Candidate) ([]Candidate, error)

// Filter is one stage of a chain. Exactly one of Independent and Dependent
// is set.
type Filter struct {
	Name        string
	Independent IndependentFunc
	Dependent   DependentFunc
}

// IsDependent reports whether the filter works on the whole list.
func (f Filter) IsDependent() bool { return f.Dependent != nil }

func (f Filter) String() string { return f.Name }

// NewIndependent builds a per-candidate filter.
func NewIndependent(name string, fn IndependentFunc) Filter {
	return Filter{Name: name, Independent: fn}
}

// NewDependent builds a whole-list filter.
func NewDependent(name string, fn DependentFunc) Filter {
	return Filter{Name: name, Dependent: fn}
}

// Chain is an ordered list of filters. The zero value is an empty chain.
type Chain struct {
	filters []Filter
}

// NewChain returns a chain of the given filters, in order.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{}
	for _, f := range filters {
		c.Add(f)
	}
	return c
}

// Add appends a filter and returns the chain for chaining. A filter with
// both or neither function set panics.
func (c *Chain) Add(f Filter) *Chain {
	if (f.Independent == nil) == (f.Dependent == nil) {
		exceptions.Panicf("devsel.Chain.Add(%q): exactly one of Independent and Dependent must be set", f.Name)
	}
	c.filters = append(c.filters, f)
	return c
}

// Filters returns a copy of the filters.
func (c *Chain) Filters() []Filter {
	return append([]Filter(nil), c.filters...)
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}

func (c *Chain) String() string {
	if c == nil {
		return ""
	}
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name
	}
	return strings.Join(names, " ")
}
