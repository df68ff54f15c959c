package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/cl/clfake"
	"github.com/cwbudde/clkit/internal/config"
	"github.com/cwbudde/clkit/internal/ocl"
	"github.com/cwbudde/clkit/internal/wrapper"
)

// openAPI returns the native API for the configured backend. "auto" uses
// OpenCL when compiled in and the fake platforms otherwise.
func openAPI(name string) (cl.API, error) {
	switch name {
	case config.BackendFake:
		return clfake.NewDefault(), nil
	case config.BackendOpenCL:
		api, err := cl.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open OpenCL: %w", err)
		}
		return api, nil
	case config.BackendAuto, "":
		api, err := cl.Open()
		if errors.Is(err, cl.ErrNotBuilt) {
			slog.Debug("OpenCL not compiled in, using fake platforms")
			return clfake.NewDefault(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open OpenCL: %w", err)
		}
		return api, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// openSession opens the configured backend. The returned close function
// logs wrappers that were never released.
func openSession() (*ocl.Session, func(), error) {
	api, err := openAPI(currentConfig().Backend)
	if err != nil {
		return nil, nil, err
	}
	s := ocl.NewSession(api, wrapper.WithLogger(slog.Default()))
	return s, func() {
		if err := s.Close(); err != nil {
			slog.Warn("Leaked wrappers", "error", err)
		}
	}, nil
}
