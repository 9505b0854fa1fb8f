package device

import "time"

// Device is a registered sensor unit.
// This matches the devices table in migrations/20260101_000000_initial_schema.up.sql
// and the devices collection in MongoDB.
type Device struct {
	// DeviceID is the caller-chosen identifier sensors report under.
	DeviceID string `json:"deviceId" bson:"deviceId"`
	Name     string `json:"name" bson:"name"`

	// Type is a free-form category, e.g. "temperature" or "multi".
	Type     string `json:"type" bson:"type"`
	Location string `json:"location" bson:"location"`
	Active   bool   `json:"active" bson:"active"`

	InstallDate     time.Time `json:"installDate" bson:"installDate"`
	LastMaintenance time.Time `json:"lastMaintenance" bson:"lastMaintenance"`

	IPAddress       *string `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty" bson:"firmwareVersion,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns an independent copy, including the optional string fields.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.IPAddress = cloneString(d.IPAddress)
	cpy.FirmwareVersion = cloneString(d.FirmwareVersion)
	return &cpy
}

// NewDevice is the input for registering a device. Optional fields left
// nil take their defaults: Active true, both dates now.
type NewDevice struct {
	DeviceID        string     `json:"deviceId"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Location        string     `json:"location"`
	Active          *bool      `json:"active,omitempty"`
	InstallDate     *time.Time `json:"installDate,omitempty"`
	LastMaintenance *time.Time `json:"lastMaintenance,omitempty"`
	IPAddress       *string    `json:"ipAddress,omitempty"`
	FirmwareVersion *string    `json:"firmwareVersion,omitempty"`
}

// Build returns the Device described by n with defaults applied.
// Text fields are trimmed; empty optional strings become nil.
func (n NewDevice) Build(now time.Time) *Device {
	now = now.UTC()
	d := &Device{
		DeviceID:        trim(n.DeviceID),
		Name:            trim(n.Name),
		Type:            trim(n.Type),
		Location:        trim(n.Location),
		Active:          true,
		InstallDate:     now,
		LastMaintenance: now,
		IPAddress:       optional(n.IPAddress),
		FirmwareVersion: optional(n.FirmwareVersion),
	}
	if n.Active != nil {
		d.Active = *n.Active
	}
	if n.InstallDate != nil {
		d.InstallDate = n.InstallDate.UTC()
	}
	if n.LastMaintenance != nil {
		d.LastMaintenance = n.LastMaintenance.UTC()
	}
	return d
}

// Update lists the fields a device update may change. Nil fields are left
// untouched. The deviceId itself is immutable.
type Update struct {
	Name            *string    `json:"name,omitempty"`
	Type            *string    `json:"type,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Active          *bool      `json:"active,omitempty"`
	InstallDate     *time.Time `json:"installDate,omitempty"`
	LastMaintenance *time.Time `json:"lastMaintenance,omitempty"`
	IPAddress       *string    `json:"ipAddress,omitempty"`
	FirmwareVersion *string    `json:"firmwareVersion,omitempty"`
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.Location == nil && u.Active == nil &&
		u.InstallDate == nil && u.LastMaintenance == nil &&
		u.IPAddress == nil && u.FirmwareVersion == nil
}

// Apply copies the set fields of u onto d. An empty IPAddress or
// FirmwareVersion clears the field.
func (u Update) Apply(d *Device) {
	if u.Name != nil {
		d.Name = trim(*u.Name)
	}
	if u.Type != nil {
		d.Type = trim(*u.Type)
	}
	if u.Location != nil {
		d.Location = trim(*u.Location)
	}
	if u.Active != nil {
		d.Active = *u.Active
	}
	if u.InstallDate != nil {
		d.InstallDate = u.InstallDate.UTC()
	}
	if u.LastMaintenance != nil {
		d.LastMaintenance = u.LastMaintenance.UTC()
	}
	if u.IPAddress != nil {
		d.IPAddress = optional(u.IPAddress)
	}
	if u.FirmwareVersion != nil {
		d.FirmwareVersion = optional(u.FirmwareVersion)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// optional trims s and maps empty to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := trim(*s)
	if v == "" {
		return nil
	}
	return &v
}
