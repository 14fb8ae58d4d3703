package models

import "time"

// UserRole represents the available roles for access control.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// HomePath maps every role to its canonical landing route. Unknown roles fall
// back to the login route.
func (r UserRole) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleTeacher:
		return "/teacher"
	case RoleStudent:
		return "/student"
	default:
		return "/"
	}
}

// User is an application account together with its role profile. Class, roll
// number, subject and gender are profile attributes that only apply to some
// roles; they stay nullable for the others.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	ClassID      *string    `db:"class_id" json:"class_id,omitempty"`
	RollNo       *string    `db:"roll_no" json:"roll_no,omitempty"`
	Subject      *string    `db:"subject" json:"subject,omitempty"`
	Gender       *string    `db:"gender" json:"gender,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is the role-facing projection of a user, mirroring what session
// resolution hands to the access guard.
type Profile struct {
	Role    UserRole `json:"role"`
	Name    string   `json:"name"`
	ClassID string   `json:"class_id,omitempty"`
	RollNo  string   `json:"roll_no,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Gender  string   `json:"gender,omitempty"`
}

// ProfileOf projects the profile attributes out of a user record.
func ProfileOf(u *User) *Profile {
	if u == nil {
		return nil
	}
	p := &Profile{Role: u.Role, Name: u.FullName}
	if u.ClassID != nil {
		p.ClassID = *u.ClassID
	}
	if u.RollNo != nil {
		p.RollNo = *u.RollNo
	}
	if u.Subject != nil {
		p.Subject = *u.Subject
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	return p
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	ClassID   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
