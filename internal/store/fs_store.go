package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Profiles are stored as <baseDir>/profiles/<name>.json.
//
// Thread-safety: writes go to a temp file that is renamed into place, so
// readers never observe a partial profile and no locks are needed.
type FSStore struct {
	baseDir string // Root directory (e.g., ~/.config/clkit)
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// Dir returns the directory holding the profile files.
func (fs *FSStore) Dir() string {
	return filepath.Join(fs.baseDir, "profiles")
}

func (fs *FSStore) profilePath(name string) string {
	return filepath.Join(fs.Dir(), name+".json")
}

// Save atomically stores a profile.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) Save(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(fs.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}

	// Unique temp name so concurrent saves of one profile don't collide
	tmp, err := os.CreateTemp(fs.Dir(), profile.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp profile file: %w", err)
	}
	tempPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp profile file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp profile file: %w", err)
	}

	finalPath := fs.profilePath(profile.Name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename profile file: %w", err)
	}

	slog.Debug("Profile saved", "name", profile.Name, "path", finalPath)
	return nil
}

// Load retrieves the named profile.
func (fs *FSStore) Load(name string) (*Profile, error) {
	if !ValidName(name) {
		return nil, &ValidationError{Field: "Name", Reason: fmt.Sprintf("%q is not a valid profile name", name)}
	}

	path := fs.profilePath(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Name: name}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to deserialize profile %s: %w", name, err)
	}

	slog.Debug("Profile loaded", "name", name, "path", path)
	return &profile, nil
}

// List returns summaries of all stored profiles, sorted by name.
func (fs *FSStore) List() ([]ProfileInfo, error) {
	entries, err := os.ReadDir(fs.Dir())
	if os.IsNotExist(err) {
		return []ProfileInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	infos := []ProfileInfo{}
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if entry.IsDir() || !ok || !ValidName(name) {
			continue
		}

		profile, err := fs.Load(name)
		if err != nil {
			slog.Warn("Failed to load profile for listing", "name", name, "error", err)
			continue
		}
		infos = append(infos, profile.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	slog.Debug("Listed profiles", "count", len(infos))
	return infos, nil
}

// Delete removes the named profile.
func (fs *FSStore) Delete(name string) error {
	if !ValidName(name) {
		return &ValidationError{Field: "Name", Reason: fmt.Sprintf("%q is not a valid profile name", name)}
	}

	path := fs.profilePath(name)
	if err := os.Remove(path); os.IsNotExist(err) {
		return &NotFoundError{Name: name}
	} else if err != nil {
		return fmt.Errorf("failed to remove profile file: %w", err)
	}

	slog.Debug("Profile deleted", "name", name, "path", path)
	return nil
}
