//go:build !gpu

package cl

// Open returns ErrNotBuilt when OpenCL support is not compiled in.
func Open() (API, error) {
	return nil, ErrNotBuilt
}
