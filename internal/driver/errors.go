package driver

import "errors"

// Domain errors for the driver package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, driver.ErrUnknownCapability) {
//	    // manifest names a device class nobody registered
//	}
var (
	// ErrInvalidManifest is returned when a manifest fails validation.
	ErrInvalidManifest = errors.New("driver: invalid manifest")

	// ErrDuplicateDevice is returned when two manifests share a device id.
	ErrDuplicateDevice = errors.New("driver: duplicate device id")

	// ErrUnknownCapability is returned when a capability tag has no factory.
	ErrUnknownCapability = errors.New("driver: unknown capability")

	// ErrCapabilityExists is returned when registering a tag twice.
	ErrCapabilityExists = errors.New("driver: capability already registered")

	// ErrUnsupported is returned by a factory that cannot drive a manifest.
	ErrUnsupported = errors.New("driver: unsupported manifest")
)
