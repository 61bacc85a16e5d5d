package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sales Report API",
        "description": "Sales report records, exports and scheduled email delivery",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Health", "description": "Liveness and service metadata"},
        {"name": "Reports", "description": "Report records"},
        {"name": "Export", "description": "Spreadsheet, document and CSV downloads"},
        {"name": "Schedule", "description": "One-off and recurring email delivery"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness and service metadata",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List report records",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "startDate", "in": "query", "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "type": "string", "format": "date"},
                    {"name": "category", "in": "query", "type": "string", "enum": ["Sales", "HR", "Finance"]},
                    {"name": "user", "in": "query", "type": "string"},
                    {"name": "region", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Insert a report record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{format}": {
            "post": {
                "tags": ["Export"],
                "summary": "Render records as a downloadable file",
                "produces": [
                    "application/pdf",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
                    "text/csv"
                ],
                "parameters": [
                    {"name": "format", "in": "path", "required": true, "type": "string", "enum": ["pdf", "excel", "csv"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Nothing to export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Render failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Export"],
                "summary": "Download an archived export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "404": {"description": "Unknown token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-report": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Email a report now or register a recurring delivery",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Delivery or store failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Scheduler disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Alias of /schedule-report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List registered recurring deliveries",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Report": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "date": {"type": "string", "format": "date"},
                "category": {"type": "string"},
                "amount": {"type": "number"},
                "user": {"type": "string"},
                "region": {"type": "string"}
            }
        },
        "ReportFilter": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "category": {"type": "string"},
                "user": {"type": "string"},
                "region": {"type": "string"}
            }
        },
        "CreateReportRequest": {
            "type": "object",
            "required": ["date", "category", "amount", "user", "region"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "category": {"type": "string", "enum": ["Sales", "HR", "Finance"]},
                "amount": {"type": "number", "minimum": 0},
                "user": {"type": "string"},
                "region": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/Report"}},
                "filters": {"$ref": "#/definitions/ReportFilter"}
            }
        },
        "ScheduleReportRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string", "format": "email"},
                "reportData": {"type": "array", "items": {"$ref": "#/definitions/Report"}},
                "format": {"type": "string", "enum": ["pdf", "excel", "csv"]},
                "frequency": {"type": "string", "enum": ["hourly", "daily", "weekly", "monthly"]},
                "cron": {"type": "string"},
                "reportConfig": {
                    "type": "object",
                    "properties": {
                        "filters": {"$ref": "#/definitions/ReportFilter"},
                        "format": {"type": "string", "enum": ["pdf", "excel", "csv"]}
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"}
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
