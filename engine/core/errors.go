package core

import (
	"errors"
)

var (
	ErrNoMeshShaderAdapter = errors.New("no adapter found with mesh shader support")
	ErrDeviceRequest       = errors.New("device request rejected")
	ErrSurfaceUnsupported  = errors.New("adapter does not support creation of surface")
	ErrSurfaceAcquire      = errors.New("cannot get next surface texture")
	ErrRendererDestroyed   = errors.New("renderer already destroyed")
	ErrMissingShader       = errors.New("shader source missing")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrUnsupportedBackend  = errors.New("backend not supported")
	ErrMissingFeature      = errors.New("required feature not supported")
	ErrLimitsExceeded      = errors.New("required limits not supported")
	ErrZeroSizedSurface    = errors.New("surface dimensions must be non-zero")

	// Surface acquisition outcomes reported by backends.
	ErrSurfaceOutdated = errors.New("surface outdated")
	ErrSurfaceLost     = errors.New("surface lost")
	ErrSurfaceTimeout  = errors.New("surface acquisition timed out")
	ErrDeviceLost      = errors.New("device lost")
	ErrOutOfMemory     = errors.New("out of memory")

	ErrUnknown = errors.New("unknown")
)
