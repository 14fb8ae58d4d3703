package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classmark API",
        "description": "Role based attendance tracking for admins, teachers and students",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Sessions, demo sign-in and password flows"},
        {"name": "Teachers", "description": "Teacher roster management"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Classes", "description": "Classes and their subject lists"},
        {"name": "Attendance", "description": "Lecture slot attendance capture"},
        {"name": "Reports", "description": "Derived attendance summaries"},
        {"name": "Dashboard", "description": "Admin overview counts"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in with email and password",
                "responses": {
                    "200": {"description": "Tokens and profile"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/demo-login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in as a pre-configured demo role",
                "responses": {
                    "200": {"description": "Demo session token"},
                    "403": {"description": "Demo sign-in disabled"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "End the session",
                "responses": {
                    "204": {"description": "Session ended"}
                }
            }
        },
        "/teacher/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Save a lecture slot's attendance",
                "responses": {
                    "201": {"description": "Record saved or overwritten"},
                    "403": {"description": "Misrouted role"}
                }
            }
        },
        "/admin/reports/classes/{class_id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-subject attendance summary for a class",
                "responses": {
                    "200": {"description": "Class report"},
                    "404": {"description": "Class not found"}
                }
            }
        },
        "/student/report": {
            "get": {
                "tags": ["Reports"],
                "summary": "The calling student's own summary",
                "responses": {
                    "200": {"description": "Student report"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
