package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Profile)
		field  string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"no devices is fine", func(p *Profile) { p.Devices = nil }, ""},
		{"empty name", func(p *Profile) { p.Name = "" }, "Name"},
		{"path separator", func(p *Profile) { p.Name = "a/b" }, "Name"},
		{"leading dot", func(p *Profile) { p.Name = ".hidden" }, "Name"},
		{"no filters", func(p *Profile) { p.Filters = nil }, "Filters"},
		{"blank filter", func(p *Profile) { p.Filters = []string{"gpu", "  "} }, "Filters"},
		{"unnamed device", func(p *Profile) { p.Devices = []DeviceIdentity{{Vendor: "x"}} }, "Devices.Name"},
		{"zero timestamp", func(p *Profile) { p.Timestamp = time.Time{} }, "Timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := createTestProfile("ok")
			tt.modify(p)
			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewProfile(t *testing.T) {
	p := NewProfile("cpu-only", []string{"cpu"}, nil)
	assert.False(t, p.Timestamp.IsZero())
	assert.NoError(t, p.Validate())

	info := p.ToInfo()
	assert.Equal(t, "cpu-only", info.Name)
	assert.Equal(t, "cpu", info.Filters)
	assert.Zero(t, info.Devices)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("gpu_1.fast-profile"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("-x"))
	assert.False(t, ValidName("a b"))
	assert.False(t, ValidName(string(make([]byte, 65))))
}
