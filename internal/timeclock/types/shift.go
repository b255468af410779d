package types

import "time"

// DeviceTypeFaceTerminal is the device type stamped on every record built
// from terminal events.
const DeviceTypeFaceTerminal = "faceTerminal"

// ShiftRecord is a persisted timeclock. It is open while ShiftEnd is nil and
// closes exactly once.
type ShiftRecord struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ShiftStart    time.Time  `json:"shift_start"`
	ShiftEnd      *time.Time `json:"shift_end,omitempty"`
	ShiftActive   bool       `json:"shift_active"`
	InDevice      string     `json:"in_device,omitempty"`
	InDeviceType  string     `json:"in_device_type,omitempty"`
	OutDevice     string     `json:"out_device,omitempty"`
	OutDeviceType string     `json:"out_device_type,omitempty"`
}

// Valid reports whether the active flag agrees with the presence of an end.
func (r ShiftRecord) Valid() bool {
	return r.ShiftActive == (r.ShiftEnd == nil)
}

// ShiftClosure closes one open record.
type ShiftClosure struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ShiftStart    time.Time `json:"shift_start"`
	ShiftEnd      time.Time `json:"shift_end"`
	OutDevice     string    `json:"out_device,omitempty"`
	OutDeviceType string    `json:"out_device_type,omitempty"`
}

// Apply returns r closed by c.
func (c ShiftClosure) Apply(r ShiftRecord) ShiftRecord {
	end := c.ShiftEnd
	r.ShiftEnd = &end
	r.ShiftActive = false
	r.OutDevice = c.OutDevice
	r.OutDeviceType = c.OutDeviceType
	return r
}

// TimeLog is a plain authentication timestamp for a user.
type TimeLog struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Timelog        time.Time `json:"timelog"`
	DeviceSerialNo string    `json:"device_serial_no,omitempty"`
}
