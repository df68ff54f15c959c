package devsel

import (
	"strconv"
	"strings"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
)

// ParseType parses a device type name, or several joined with '|'.
func ParseType(s string) (cl.DeviceType, error) {
	var mask cl.DeviceType
	for _, part := range strings.Split(s, "|") {
		t, ok := TypeNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, errs.New(errs.Args, "parse", "unknown device type %q", part)
		}
		mask |= t
	}
	return mask, nil
}

// ParseFilter parses one chain term:
//
//	type=<gpu|cpu|accel|all>   gpu   cpu   accel
//	match=<text>
//	platform=<index>
//	same-platform
//	majority-platform
//	index=<n>
//	menu[=<n>]
//
// p is used by menu terms and may be nil, see Menu.
func ParseFilter(term string, p Prompter) (Filter, error) {
	key, value, hasValue := strings.Cut(strings.TrimSpace(term), "=")
	key = strings.ToLower(key)

	needValue := func() error {
		if !hasValue || value == "" {
			return errs.New(errs.Args, "parse", "filter %q needs a value", key)
		}
		return nil
	}
	needInt := func() (int, error) {
		if err := needValue(); err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, errs.New(errs.Args, "parse", "filter %q needs a non-negative integer, got %q", key, value)
		}
		return n, nil
	}
	noValue := func(f Filter) (Filter, error) {
		if hasValue {
			return Filter{}, errs.New(errs.Args, "parse", "filter %q takes no value", key)
		}
		return f, nil
	}

	switch key {
	case "type":
		if err := needValue(); err != nil {
			return Filter{}, err
		}
		mask, err := ParseType(value)
		if err != nil {
			return Filter{}, err
		}
		return Type(mask), nil
	case "gpu":
		return noValue(GPU())
	case "cpu":
		return noValue(CPU())
	case "accel", "accelerator":
		return noValue(Accelerator())
	case "match":
		if err := needValue(); err != nil {
			return Filter{}, err
		}
		return Match(value), nil
	case "platform":
		n, err := needInt()
		if err != nil {
			return Filter{}, err
		}
		return PlatformIndex(n), nil
	case "same-platform":
		return noValue(SamePlatform())
	case "majority-platform":
		return noValue(MajorityPlatform())
	case "index":
		n, err := needInt()
		if err != nil {
			return Filter{}, err
		}
		return Index(n), nil
	case "menu":
		if !hasValue {
			return Menu(p, -1), nil
		}
		n, err := needInt()
		if err != nil {
			return Filter{}, err
		}
		return Menu(p, n), nil
	}
	return Filter{}, errs.New(errs.Args, "parse", "unknown filter %q", term)
}

// ParseChain parses terms in order into a chain.
func ParseChain(terms []string, p Prompter) (*Chain, error) {
	c := NewChain()
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		f, err := ParseFilter(t, p)
		if err != nil {
			return nil, err
		}
		c.Add(f)
	}
	return c, nil
}

// Interactive reports whether running the chain may need a prompt: it has a
// menu stage without a preselected index.
func (c *Chain) Interactive() bool {
	if c == nil {
		return false
	}
	for _, f := range c.filters {
		if f.Name == "menu" {
			return true
		}
	}
	return false
}
