package reading

import "errors"

var (
	// ErrNoReadings is returned by Latest when a device has never reported.
	ErrNoReadings = errors.New("reading: no readings")

	// ErrInvalidReading is returned when validation fails. The wrapping
	// error names the offending field.
	ErrInvalidReading = errors.New("reading: invalid")
)
