package types

import (
	"strconv"
	"strings"
	"time"
)

// LegacyID is the numeric employee identifier used by the terminals and the
// relational event source, kept in canonical decimal form ("0501" -> "501").
type LegacyID string

// ParseLegacyID canonicalizes a terminal employee id. Non-numeric ids are
// rejected; the source only ever matches numeric ids.
func ParseLegacyID(s string) (LegacyID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return "", false
	}
	return LegacyID(strconv.FormatInt(n, 10)), true
}

func (id LegacyID) String() string { return string(id) }

// RawEvent is one authentication row from a terminal. Rows are immutable and
// arrive in no guaranteed order.
type RawEvent struct {
	EmployeeID     LegacyID
	AuthTime       time.Time
	DeviceSerialNo string
	DeviceName     string // as reported by the source row, may be empty
}

// DeviceConfig maps a terminal serial number to a display name.
// ExtractRequired marks terminals whose events feed timeclock extraction.
type DeviceConfig struct {
	SerialNo        string `json:"serial_no" bson:"serialNo" yaml:"serial_no"`
	DeviceName      string `json:"device_name" bson:"deviceName" yaml:"device_name"`
	ExtractRequired bool   `json:"extract_required" bson:"extractRequired" yaml:"extract_required"`
}

// User is the slice of a directory entry the engine needs.
type User struct {
	ID               string   `json:"id" bson:"_id" yaml:"id"`
	LegacyEmployeeID string   `json:"employee_id,omitempty" bson:"employeeId,omitempty" yaml:"employee_id"`
	IsActive         bool     `json:"is_active" bson:"isActive" yaml:"is_active"`
	BranchIDs        []string `json:"branch_ids,omitempty" bson:"branchIds,omitempty" yaml:"branch_ids"`
	DepartmentIDs    []string `json:"department_ids,omitempty" bson:"departmentIds,omitempty" yaml:"department_ids"`
}
