package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a deviceId does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose deviceId is taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when validation fails. The wrapping
	// error names the offending field.
	ErrInvalidDevice = errors.New("device: invalid")
)
