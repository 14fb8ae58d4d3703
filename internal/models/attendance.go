package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AttendanceStatus is the per-student state within a lecture slot.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// StatusMap maps student IDs to their attendance status within one lecture
// slot. Students missing from the map count as absent, never as an error.
type StatusMap map[string]AttendanceStatus

// StatusOf returns the recorded status for the student, defaulting to absent.
func (m StatusMap) StatusOf(studentID string) AttendanceStatus {
	if m == nil {
		return AttendanceStatusAbsent
	}
	if status, ok := m[studentID]; ok && status == AttendanceStatusPresent {
		return AttendanceStatusPresent
	}
	return AttendanceStatusAbsent
}

// Value implements driver.Valuer storing the map as JSONB.
func (m StatusMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner reading the JSONB column.
func (m *StatusMap) Scan(src interface{}) error {
	if src == nil {
		*m = StatusMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported status map source %T", src)
	}
	return json.Unmarshal(raw, m)
}

// DateLayout is the ISO day format used for attendance record dates.
const DateLayout = "2006-01-02"

// AttendanceKey identifies a single lecture slot. Using the tuple as the
// record's identity makes saves overwrite instead of duplicate.
type AttendanceKey struct {
	ClassID   string
	TeacherID string
	Subject   string
	TimeSlot  string
	Date      string
}

// String concatenates the key fields into the canonical record ID.
func (k AttendanceKey) String() string {
	return strings.Join([]string{k.ClassID, k.TeacherID, k.Subject, k.TimeSlot, k.Date}, "_")
}

// AttendanceRecord is one lecture slot's presence map for a class, subject,
// time slot and day.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Subject   string    `db:"subject" json:"subject"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Date      string    `db:"date" json:"date"`
	Students  StatusMap `db:"students" json:"students"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Key rebuilds the composite key from the record fields.
func (r *AttendanceRecord) Key() AttendanceKey {
	return AttendanceKey{
		ClassID:   r.ClassID,
		TeacherID: r.TeacherID,
		Subject:   r.Subject,
		TimeSlot:  r.TimeSlot,
		Date:      r.Date,
	}
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	ClassID   string
	TeacherID string
	Subject   string
	TimeSlot  string
	Date      string
	Page      int
	PageSize  int
}
