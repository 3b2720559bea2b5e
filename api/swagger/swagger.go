package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Conflict-free school timetable generation engine with CSV and PDF export.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Timetable generation and retrieval"},
        {"name": "Runs", "description": "Generation run audit log"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a conflict-free weekly timetable",
                "description": "Runs the backtracking allocator over the submitted sections. On success one table per section and per teacher is materialized and exported as CSV.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No feasible assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List entities from the latest generated timetable",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Fetch the generated table for one section or teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/download": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download one generated table as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
        "/runs": {
            "get": {
                "tags": ["Runs"],
                "summary": "List recent generation runs",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "default": 20}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run log disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "tags": ["Runs"],
                "summary": "Fetch one generation run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run log disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerationRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["SUCCEEDED", "FAILED"]},
                "sections": {"type": "integer"},
                "teachers": {"type": "integer"},
                "meta": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "SubjectLoadRequest": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "weeklyPeriods": {"type": "integer"}
            },
            "required": ["subject", "teacher", "weeklyPeriods"]
        },
        "SectionRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SubjectLoadRequest"}
                }
            },
            "required": ["id", "subjects"]
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "periodsPerDay": {"type": "integer", "minimum": 2, "maximum": 16},
                "lunchPeriod": {"type": "integer"},
                "saturday": {"type": "string", "enum": ["holiday", "half", "full"]},
                "sections": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SectionRequest"}
                }
            },
            "required": ["periodsPerDay", "saturday", "sections"]
        },
        "TimetableEntity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string", "enum": ["section", "teacher"]},
                "filename": {"type": "string"}
            }
        },
        "TimetableTable": {
            "type": "object",
            "properties": {
                "entity": {"type": "string"},
                "kind": {"type": "string"},
                "title": {"type": "string"},
                "headers": {"type": "array", "items": {"type": "string"}},
                "rows": {
                    "type": "array",
                    "items": {"type": "array", "items": {"type": "string"}}
                }
            }
        },
        "GenerateTimetableResponse": {
            "type": "object",
            "properties": {
                "runId": {"type": "string"},
                "sections": {"type": "integer"},
                "teachers": {"type": "integer"},
                "entities": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TimetableEntity"}
                },
                "tables": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TimetableTable"}
                }
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
