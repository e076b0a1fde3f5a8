package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Special Education Data API",
        "description": "Spreadsheet uploads and row editing for the special-education dashboard",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Records", "description": "List, add, update and delete rows of one entity"},
        {"name": "Uploads", "description": "Spreadsheet reconciliation into the warehouse"},
        {"name": "Exports", "description": "CSV and PDF downloads"},
        {"name": "Health", "description": "Liveness, readiness and metrics"}
    ],
    "parameters": {
        "entity": {
            "name": "entity",
            "in": "path",
            "required": true,
            "type": "string",
            "enum": ["student", "parent", "teacher", "class", "assessment"]
        }
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe for the warehouse and cache",
                "responses": {
                    "200": {"description": "Ready", "schema": {"$ref": "#/definitions/Readiness"}},
                    "503": {"description": "A dependency is unavailable", "schema": {"$ref": "#/definitions/Readiness"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Health"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Metrics in text exposition format"}
                }
            }
        },
        "/get-{entity}": {
            "get": {
                "tags": ["Records"],
                "summary": "List every row of an entity ordered by key",
                "parameters": [{"$ref": "#/parameters/entity"}],
                "responses": {
                    "200": {"description": "Rows", "schema": {"type": "array", "items": {"type": "object"}}},
                    "502": {"description": "Warehouse failure", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/add-{entity}": {
            "post": {
                "tags": ["Records"],
                "summary": "Add rows; keys are generated sequentially",
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"type": "object"}}}
                ],
                "responses": {
                    "200": {"description": "Added N row(s)", "schema": {"$ref": "#/definitions/Added"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/update-{entity}": {
            "put": {
                "tags": ["Records"],
                "summary": "Overwrite rows by key as one batch",
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"type": "object"}}}
                ],
                "responses": {
                    "200": {"description": "Updated N row(s)", "schema": {"$ref": "#/definitions/Message"}},
                    "400": {"description": "Invalid payload or missing key", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/delete-{entity}/{id}": {
            "delete": {
                "tags": ["Records"],
                "summary": "Delete one row by key; missing keys succeed",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/save-{entity}": {
            "post": {
                "tags": ["Records"],
                "summary": "Apply a batch of new and edited rows",
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/RecordChange"}}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/Saved"}},
                    "400": {"description": "Invalid change", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/upload-{entity}": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a spreadsheet and merge it into the entity table",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "file", "in": "formData", "required": true, "type": "file", "description": ".csv, .xls or .xlsx"}
                ],
                "responses": {
                    "200": {"description": "Merged, or {\"error\": \"Unsupported file type\"}", "schema": {"$ref": "#/definitions/Upload"}},
                    "400": {"description": "Unreadable file or missing key column", "schema": {"$ref": "#/definitions/Error"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/Error"}},
                    "502": {"description": "Schema lookup, staging or merge failed", "schema": {"$ref": "#/definitions/Error"}},
                    "503": {"description": "Warehouse busy, try again later", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/export-{entity}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the entity's rows",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/fetch/{table}": {
            "get": {
                "tags": ["Records"],
                "summary": "Fetch rows wrapped as {\"<table>s\": [...]}",
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rows, or an error naming the valid tables"}
                }
            }
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "Message": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "Added": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Saved": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "added": {"type": "array", "items": {"type": "string"}},
                "updated": {"type": "integer"}
            }
        },
        "RecordChange": {
            "type": "object",
            "required": ["kind", "record"],
            "properties": {
                "kind": {"type": "string", "enum": ["new", "existing"]},
                "record": {"type": "object"}
            }
        },
        "Upload": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "entity": {"type": "string"},
                "table": {"type": "string"},
                "rows_read": {"type": "integer"},
                "rows_staged": {"type": "integer"},
                "rows_skipped": {"type": "integer"},
                "rows_affected": {"type": "integer"},
                "invalid_dates": {"type": "integer"},
                "dropped_columns": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Readiness": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "backend_url": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
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
