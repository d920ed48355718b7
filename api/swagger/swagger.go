package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinic EMR Scheduling API",
        "description": "Provider availability engine and preference-scored slot recommendations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and token lifecycle"},
        {"name": "Availability", "description": "Free-window computation and slot recommendations"},
        {"name": "Schedules", "description": "Weekly schedule blocks and date exceptions"},
        {"name": "Appointments", "description": "Bookings and appointment types"},
        {"name": "Preferences", "description": "Soft scheduling preferences"},
        {"name": "Buffers", "description": "Pre/post appointment padding"},
        {"name": "Providers", "description": "Clinician roster"},
        {"name": "Patients", "description": "Patient records"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new token pair",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke every refresh token for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Compute free bookable windows for a provider",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "provider_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "duration_minutes", "in": "query", "type": "integer"},
                    {"name": "appointment_type_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "404": {"description": "Unknown provider"}
                }
            }
        },
        "/availability/recommendations": {
            "get": {
                "tags": ["Availability"],
                "summary": "Recommend the best candidate slots for a booking",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "provider_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "appointment_type_id", "in": "query", "type": "string"},
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "top_n", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/availability/export": {
            "get": {
                "tags": ["Availability"],
                "summary": "Download an availability report as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "provider_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/providers/{id}/schedule": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a provider's weekly schedule blocks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Add a weekly schedule block",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WeeklyBlockInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/providers/{id}/exceptions": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedule exceptions in a date range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Schedules"],
                "summary": "Create or replace the exception for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List appointments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Book an appointment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflict"}
                }
            }
        },
        "/preferences/{subject}/{id}": {
            "get": {
                "tags": ["Preferences"],
                "summary": "Get the scheduling preference for a subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "subject", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No preference recorded"}
                }
            }
        },
        "/buffers": {
            "get": {
                "tags": ["Buffers"],
                "summary": "List buffer configurations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Buffers"],
                "summary": "Create or replace a buffer configuration",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "WeeklyBlockInput": {
            "type": "object",
            "required": ["day_of_week", "start_time", "end_time", "is_available"],
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "12:00"},
                "is_available": {"type": "boolean"}
            }
        },
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
                "details": {"type": "string"},
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
