package models

import "time"

// HistoryEntry pairs a lecture date with the student's resolved status.
type HistoryEntry struct {
	Date   string           `json:"date"`
	Status AttendanceStatus `json:"status"`
}

// SubjectSummary is the per-subject attendance fold for one student.
type SubjectSummary struct {
	Subject      string         `json:"subject"`
	TotalCount   int            `json:"total_count"`
	PresentCount int            `json:"present_count"`
	Percent      int            `json:"percent"`
	AtRisk       bool           `json:"at_risk"`
	Today        string         `json:"today"`
	History      []HistoryEntry `json:"history,omitempty"`
}

// SummaryRow is the derived per-student statistic for class tables. It is
// recomputed on every load and never persisted.
type SummaryRow struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	RollNo       string `json:"roll_no"`
	PresentCount int    `json:"present_count"`
	TotalCount   int    `json:"total_count"`
	Percent      int    `json:"percent"`
	AtRisk       bool   `json:"at_risk"`
	Today        string `json:"today"`
}

// OverallSummary aggregates a student's presence across all subjects.
type OverallSummary struct {
	TotalPresent int  `json:"total_present"`
	TotalAbsent  int  `json:"total_absent"`
	Percent      int  `json:"percent"`
	AtRisk       bool `json:"at_risk"`
}

// StudentReport combines the per-subject folds with the overall summary.
type StudentReport struct {
	StudentID string           `json:"student_id"`
	ClassID   string           `json:"class_id"`
	Subjects  []SubjectSummary `json:"subjects"`
	Overall   OverallSummary   `json:"overall"`
}

// SubjectRows groups the class summary table under its subject.
type SubjectRows struct {
	Subject string       `json:"subject"`
	Rows    []SummaryRow `json:"rows"`
}

// ClassReport is the teacher/admin view over a whole class.
type ClassReport struct {
	ClassID  string        `json:"class_id"`
	Subjects []SubjectRows `json:"subjects"`
}

// DashboardCounts summarises roster sizes for the admin dashboard.
type DashboardCounts struct {
	Teachers    int           `json:"teachers"`
	Students    int           `json:"students"`
	Classes     int           `json:"classes"`
	PerClass    []ClassDetail `json:"per_class"`
	GeneratedAt time.Time     `json:"generated_at"`
}
