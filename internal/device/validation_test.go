package device

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "greenhouse-01", false},
		{"mac style", "aa:bb:cc:dd:ee:ff", false},
		{"dotted", "unit.7_b", false},
		{"empty", "", true},
		{"leading dash", "-x", true},
		{"slash", "a/b", true},
		{"mqtt wildcard", "a+b", true},
		{"space", "a b", true},
		{"too long", strings.Repeat("a", maxDeviceIDLength+1), true},
		{"max length", strings.Repeat("a", maxDeviceIDLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeviceID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDeviceID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("error %v does not wrap ErrInvalidDevice", err)
			}
		})
	}
}

func TestValidateIPAddress(t *testing.T) {
	for _, ip := range []string{"10.0.0.1", "::1", "fe80::1"} {
		if err := ValidateIPAddress(ip); err != nil {
			t.Errorf("ValidateIPAddress(%q) = %v", ip, err)
		}
	}
	for _, ip := range []string{"", "10.0.0", "host.local", "256.0.0.1"} {
		if err := ValidateIPAddress(ip); err == nil {
			t.Errorf("ValidateIPAddress(%q) should fail", ip)
		}
	}
}

func TestValidateDevice(t *testing.T) {
	valid := func() *Device {
		return NewDevice{DeviceID: "d1", Name: "n", Type: "t", Location: "l"}.Build(time.Now())
	}

	tests := []struct {
		name    string
		mutate  func(*Device)
		wantMsg string
	}{
		{"valid", func(*Device) {}, ""},
		{"nil firmware ok", func(d *Device) { d.FirmwareVersion = nil }, ""},
		{"long name", func(d *Device) { d.Name = strings.Repeat("n", maxNameLength+1) }, "name exceeds"},
		{"empty type", func(d *Device) { d.Type = "" }, "type is required"},
		{"empty location", func(d *Device) { d.Location = "" }, "location is required"},
		{"bad ip", func(d *Device) { d.IPAddress = strPtr("nope") }, "ipAddress"},
		{"long firmware", func(d *Device) { d.FirmwareVersion = strPtr(strings.Repeat("1", maxVersionLength+1)) }, "firmwareVersion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("ValidateDevice() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ValidateDevice() = %v, want message containing %q", err, tt.wantMsg)
			}
		})
	}

	if err := ValidateDevice(nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("ValidateDevice(nil) = %v", err)
	}
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		u       Update
		wantErr bool
	}{
		{"empty", Update{}, true},
		{"name", Update{Name: strPtr("New")}, false},
		{"blank name", Update{Name: strPtr(" ")}, true},
		{"blank location", Update{Location: strPtr("")}, true},
		{"clear ip", Update{IPAddress: strPtr("")}, false},
		{"bad ip", Update{IPAddress: strPtr("x")}, true},
		{"active only", Update{Active: new(bool)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdate(tt.u)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDevice_Build(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	install := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	d := NewDevice{
		DeviceID:        "d1",
		Name:            "  Name ",
		Type:            "t",
		Location:        "l",
		InstallDate:     &install,
		FirmwareVersion: strPtr("   "),
	}.Build(now)

	if d.Name != "Name" {
		t.Errorf("Name = %q, want trimmed", d.Name)
	}
	if !d.InstallDate.Equal(install) {
		t.Errorf("InstallDate = %v, want %v", d.InstallDate, install)
	}
	if d.LastMaintenance.Location() != time.UTC || !d.LastMaintenance.Equal(now) {
		t.Errorf("LastMaintenance = %v, want %v in UTC", d.LastMaintenance, now)
	}
	if d.FirmwareVersion != nil {
		t.Error("blank FirmwareVersion should become nil")
	}
}

func TestDevice_Clone(t *testing.T) {
	d := &Device{DeviceID: "d1", IPAddress: strPtr("10.0.0.1")}
	cpy := d.Clone()
	*cpy.IPAddress = "10.0.0.2"

	if *d.IPAddress != "10.0.0.1" {
		t.Error("Clone shares IPAddress with original")
	}
	if (*Device)(nil).Clone() != nil {
		t.Error("nil Clone should be nil")
	}
}
