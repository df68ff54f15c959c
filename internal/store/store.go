// Package store persists named device selection profiles.
package store

import "errors"

// Store defines the interface for persisting selection profiles.
//
// A profile records the filter chain that produced a selection together
// with the identity of the devices it picked at the time. Reapplying the
// chain later may pick different devices if the installed platforms have
// changed; callers compare Devices against the new selection to notice.
//
// Implementations must be safe for concurrent use: the HTTP server and the
// CLI may read while another process writes.
type Store interface {
	// Save stores a profile under its name, replacing any existing one.
	// The profile is validated first.
	//
	// Returns an error if:
	//   - the profile is nil
	//   - the profile fails validation (see Profile.Validate)
	//   - the write fails (permissions, disk full)
	Save(profile *Profile) error

	// Load retrieves the profile with the given name.
	//
	// Returns an error if:
	//   - the name is invalid
	//   - no profile exists (returns *NotFoundError, matches ErrNotFound)
	//   - the file is corrupted or unreadable
	Load(name string) (*Profile, error)

	// List returns summaries of all stored profiles sorted by name.
	//
	// Returns an empty slice (not an error) when no profiles exist.
	// Unreadable profiles are skipped and logged.
	List() ([]ProfileInfo, error)

	// Delete removes the named profile.
	//
	// Returns *NotFoundError if the profile does not exist.
	Delete(name string) error
}

// ErrNotFound matches any *NotFoundError with errors.Is.
var ErrNotFound = &NotFoundError{}

// NotFoundError is returned when a profile does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "profile not found: " + e.Name
}

// Is implements error matching for errors.Is.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
