package guard

import "github.com/classmark/classmark-api/internal/models"

// Route pairs a URL path with the roles allowed to reach it.
type Route struct {
	Path  string
	Roles []models.UserRole
}

// Table is the static route table. Paths are relative to the API prefix;
// routes absent from the table are public.
var Table = []Route{
	{Path: "/admin", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/admin/dashboard", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/admin/teachers", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/admin/students", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/admin/classes", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/admin/attendance", Roles: []models.UserRole{models.RoleAdmin}},
	{Path: "/teacher", Roles: []models.UserRole{models.RoleTeacher}},
	{Path: "/teacher/attendance", Roles: []models.UserRole{models.RoleTeacher}},
	{Path: "/teacher/history", Roles: []models.UserRole{models.RoleTeacher}},
	{Path: "/student", Roles: []models.UserRole{models.RoleStudent}},
	{Path: "/student/report", Roles: []models.UserRole{models.RoleStudent}},
}

// Lookup returns the allowed roles for a path, with ok=false for public
// routes.
func Lookup(path string) ([]models.UserRole, bool) {
	for _, route := range Table {
		if route.Path == path {
			return route.Roles, true
		}
	}
	return nil, false
}
