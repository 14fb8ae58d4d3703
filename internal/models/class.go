package models

import (
	"time"

	"github.com/lib/pq"
)

// Class represents a cohort (e.g. "FY") together with its ordered list of
// unique subject names.
type Class struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Subjects  pq.StringArray `db:"subjects" json:"subjects"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSubject reports whether the class already teaches the subject.
func (c *Class) HasSubject(subject string) bool {
	for _, s := range c.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ClassDetail extends a class with its student headcount for dashboards.
type ClassDetail struct {
	Class
	StudentCount int `db:"student_count" json:"student_count"`
}
