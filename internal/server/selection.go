package server

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/clkit/internal/devsel"
	"github.com/cwbudde/clkit/internal/store"
)

// Selection is a device selection held by the server on behalf of a client.
// The underlying wrappers stay referenced until the selection is released.
type Selection struct {
	ID       string              `json:"id"`
	Filters  []string            `json:"filters"`
	Profile  string              `json:"profile,omitempty"`
	Platform string              `json:"platform"`
	Devices  []devsel.DeviceInfo `json:"devices"`
	Created  time.Time           `json:"created"`

	held *devsel.Selection
}

// Identities returns the store form of the selected devices.
func (s *Selection) Identities() []store.DeviceIdentity {
	out := make([]store.DeviceIdentity, len(s.Devices))
	for i, d := range s.Devices {
		out[i] = store.DeviceIdentity{Name: d.Name, Vendor: d.Vendor, Platform: d.Platform}
	}
	return out
}

// describeSelection builds the JSON view of a held selection.
func describeSelection(sel *devsel.Selection) (string, []devsel.DeviceInfo, error) {
	platform, err := sel.Platform.Name()
	if err != nil {
		return "", nil, err
	}
	infos := make([]devsel.DeviceInfo, len(sel.Devices))
	for i, d := range sel.Devices {
		c := devsel.Candidate{DeviceRecord: sel.Records[i], Device: d, Platform: sel.Platform}
		if infos[i], err = devsel.Describe(c); err != nil {
			return "", nil, err
		}
	}
	return platform, infos, nil
}

// SelectionManager tracks the selections held by the server
type SelectionManager struct {
	mu          sync.RWMutex
	selections  map[string]*Selection
	broadcaster *EventBroadcaster
}

// NewSelectionManager creates a new SelectionManager
func NewSelectionManager() *SelectionManager {
	return &SelectionManager{
		selections:  make(map[string]*Selection),
		broadcaster: NewEventBroadcaster(),
	}
}

// Hold takes ownership of sel and registers it under a new ID. On error
// the selection is released.
func (sm *SelectionManager) Hold(filters []string, profile string, sel *devsel.Selection) (*Selection, error) {
	platform, infos, err := describeSelection(sel)
	if err != nil {
		_ = sel.Release()
		return nil, err
	}

	s := &Selection{
		ID:       uuid.New().String(),
		Filters:  filters,
		Profile:  profile,
		Platform: platform,
		Devices:  infos,
		Created:  time.Now(),
		held:     sel,
	}

	sm.mu.Lock()
	sm.selections[s.ID] = s
	live := len(sm.selections)
	sm.mu.Unlock()

	slog.Debug("Selection held", "id", s.ID, "platform", platform, "devices", len(infos))
	sm.broadcaster.Broadcast(SelectionEvent{
		Type:        EventCreated,
		SelectionID: s.ID,
		Devices:     len(infos),
		Live:        live,
		Timestamp:   s.Created,
	})
	return s, nil
}

// Get retrieves a selection by ID
func (sm *SelectionManager) Get(id string) (*Selection, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s, exists := sm.selections[id]
	return s, exists
}

// List returns all held selections, oldest first
func (sm *SelectionManager) List() []*Selection {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]*Selection, 0, len(sm.selections))
	for _, s := range sm.selections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of held selections.
func (sm *SelectionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.selections)
}

// Release drops a selection and its wrapper references. It reports false
// when no selection has that ID.
func (sm *SelectionManager) Release(id string) (bool, error) {
	sm.mu.Lock()
	s, exists := sm.selections[id]
	delete(sm.selections, id)
	live := len(sm.selections)
	sm.mu.Unlock()

	if !exists {
		return false, nil
	}

	err := s.held.Release()
	slog.Debug("Selection released", "id", id, "error", err)
	sm.broadcaster.Broadcast(SelectionEvent{
		Type:        EventReleased,
		SelectionID: id,
		Devices:     len(s.Devices),
		Live:        live,
		Timestamp:   time.Now(),
	})
	return true, err
}

// ReleaseAll drops every held selection and returns the first error.
func (sm *SelectionManager) ReleaseAll() error {
	var first error
	for _, s := range sm.List() {
		if _, err := sm.Release(s.ID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
