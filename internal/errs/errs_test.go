package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/cwbudde/clkit/internal/cl"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(DeviceNotFound, "select", "no device found at index %d", 4), "select: no device found at index 4"},
		{&Error{Code: NoPlatforms}, "no_platforms"},
		{Wrap(cl.NewStatusError("clGetDeviceInfo", cl.InvalidValue), InfoUnavailable, "", "param 0x%x", 0x103d),
			"param 0x103d: clGetDeviceInfo: CL_INVALID_VALUE (-30)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestCategoriesStayDistinct(t *testing.T) {
	native := cl.NewStatusError("clGetDeviceInfo", cl.InvalidValue)
	lib := errors.Wrap(Wrap(native, InfoUnavailable, "info", "unavailable"), "device name")

	assert.True(t, errors.Is(lib, ErrInfoUnavailable))
	assert.True(t, Is(lib, InfoUnavailable))
	assert.False(t, Is(lib, DeviceNotFound))
	assert.Equal(t, InfoUnavailable, CodeOf(lib))
	// The native cause is still reachable.
	assert.True(t, cl.IsStatus(lib, cl.InvalidValue))

	assert.False(t, Is(native, InfoUnavailable))
	assert.Equal(t, Other, CodeOf(fmt.Errorf("plain")))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "no_matching_device", DeviceNotFound.String())
	assert.Equal(t, "code(99)", Code(99).String())
}
