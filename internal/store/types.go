package store

import (
	"regexp"
	"strings"
	"time"
)

// DeviceIdentity describes a selected device well enough to recognise it
// again after the native handles have changed.
type DeviceIdentity struct {
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Platform string `json:"platform"`
}

// Profile is a named, reusable filter chain.
//
// Filters holds the textual chain terms ("gpu", "majority-platform",
// "menu=0" and so on). Devices is informational: it lists what the chain
// selected when the profile was saved.
type Profile struct {
	// Name identifies the profile and doubles as its file name.
	Name string `json:"name"`

	// Filters is the chain, in application order.
	Filters []string `json:"filters"`

	// Devices selected when the profile was saved (may be empty).
	Devices []DeviceIdentity `json:"devices,omitempty"`

	// Timestamp records when the profile was saved.
	Timestamp time.Time `json:"timestamp"`
}

// ProfileInfo is the listing view of a profile.
type ProfileInfo struct {
	Name      string    `json:"name"`
	Filters   string    `json:"filters"`
	Devices   int       `json:"devices"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProfile creates a profile stamped with the current time.
func NewProfile(name string, filters []string, devices []DeviceIdentity) *Profile {
	return &Profile{
		Name:      name,
		Filters:   filters,
		Devices:   devices,
		Timestamp: time.Now(),
	}
}

// ToInfo converts a Profile to its listing view.
func (p *Profile) ToInfo() ProfileInfo {
	return ProfileInfo{
		Name:      p.Name,
		Filters:   strings.Join(p.Filters, " "),
		Devices:   len(p.Devices),
		Timestamp: p.Timestamp,
	}
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidName reports whether name can be used as a profile name. Names map
// to file names, so path separators and leading dots are rejected.
func ValidName(name string) bool {
	return len(name) <= 64 && namePattern.MatchString(name)
}

// Validate checks that the profile can be stored and reapplied.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "Name", Reason: "cannot be empty"}
	}
	if !ValidName(p.Name) {
		return &ValidationError{Field: "Name", Reason: "must be at most 64 letters, digits, '.', '_' or '-'"}
	}
	if len(p.Filters) == 0 {
		return &ValidationError{Field: "Filters", Reason: "cannot be empty"}
	}
	for _, term := range p.Filters {
		if strings.TrimSpace(term) == "" {
			return &ValidationError{Field: "Filters", Reason: "cannot contain blank terms"}
		}
	}
	for _, d := range p.Devices {
		if d.Name == "" {
			return &ValidationError{Field: "Devices.Name", Reason: "cannot be empty"}
		}
	}
	if p.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a profile validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
