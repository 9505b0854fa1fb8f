package device

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation constants.
const (
	maxDeviceIDLength = 64
	maxNameLength     = 100
	maxFieldLength    = 100
	maxVersionLength  = 64

	// deviceIDPattern keeps ids safe inside URL paths and MQTT topic levels.
	deviceIDPattern = `^[A-Za-z0-9][A-Za-z0-9._:-]*$`
)

var deviceIDRegex = regexp.MustCompile(deviceIDPattern)

// ValidateDevice checks a complete device before it is stored.
// Returns an error wrapping ErrInvalidDevice naming the first bad field.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if err := ValidateDeviceID(d.DeviceID); err != nil {
		return err
	}
	if err := validateText("name", d.Name, maxNameLength); err != nil {
		return err
	}
	if err := validateText("type", d.Type, maxFieldLength); err != nil {
		return err
	}
	if err := validateText("location", d.Location, maxFieldLength); err != nil {
		return err
	}
	if d.IPAddress != nil {
		if err := ValidateIPAddress(*d.IPAddress); err != nil {
			return err
		}
	}
	if d.FirmwareVersion != nil && utf8.RuneCountInString(*d.FirmwareVersion) > maxVersionLength {
		return fmt.Errorf("%w: firmwareVersion exceeds %d characters", ErrInvalidDevice, maxVersionLength)
	}
	return nil
}

// ValidateUpdate checks the fields an update sets. Required text fields may
// not be blanked.
func ValidateUpdate(u Update) error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidDevice)
	}
	if u.Name != nil {
		if err := validateText("name", trim(*u.Name), maxNameLength); err != nil {
			return err
		}
	}
	if u.Type != nil {
		if err := validateText("type", trim(*u.Type), maxFieldLength); err != nil {
			return err
		}
	}
	if u.Location != nil {
		if err := validateText("location", trim(*u.Location), maxFieldLength); err != nil {
			return err
		}
	}
	if u.IPAddress != nil && trim(*u.IPAddress) != "" {
		if err := ValidateIPAddress(trim(*u.IPAddress)); err != nil {
			return err
		}
	}
	if u.FirmwareVersion != nil && utf8.RuneCountInString(trim(*u.FirmwareVersion)) > maxVersionLength {
		return fmt.Errorf("%w: firmwareVersion exceeds %d characters", ErrInvalidDevice, maxVersionLength)
	}
	return nil
}

// ValidateDeviceID checks a deviceId's length and character set.
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: deviceId is required", ErrInvalidDevice)
	}
	if len(id) > maxDeviceIDLength {
		return fmt.Errorf("%w: deviceId exceeds %d characters", ErrInvalidDevice, maxDeviceIDLength)
	}
	if !deviceIDRegex.MatchString(id) {
		return fmt.Errorf("%w: deviceId %q may only contain letters, digits, '.', '_', ':' and '-'", ErrInvalidDevice, id)
	}
	return nil
}

// ValidateIPAddress accepts IPv4 and IPv6 literals.
func ValidateIPAddress(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: ipAddress %q is not a valid IP address", ErrInvalidDevice, ip)
	}
	return nil
}

func validateText(field, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidDevice, field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidDevice, field, maxLen)
	}
	return nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
