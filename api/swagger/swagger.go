package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Operations Monitoring API",
        "description": "Operational metrics and threshold alerts for the lesson transcription and analysis pipeline",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Monitoring", "description": "Transcription, analysis and cost metrics"},
        {"name": "Probes", "description": "Liveness, readiness and Prometheus scrape"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Probes"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Probes"],
                "summary": "Readiness check against Postgres and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency failed its ping"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Probes"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Exposition format"}}
            }
        },
        "/api/v1/monitoring/transcriptions": {
            "get": {
                "tags": ["Monitoring"],
                "summary": "Speech-to-text quality metrics",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["1h", "24h", "7d", "30d"], "default": "24h"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Metric query failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitoring/analyses": {
            "get": {
                "tags": ["Monitoring"],
                "summary": "Analysis pipeline metrics and queue depth",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["1h", "24h", "7d", "30d"], "default": "24h"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Metric query failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Analysis queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitoring/costs": {
            "get": {
                "tags": ["Monitoring"],
                "summary": "Per-school monthly cost ranking with projection",
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "YYYY-MM, defaults to the current month"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid month", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitoring/costs/export": {
            "get": {
                "tags": ["Monitoring"],
                "summary": "Download the cost ranking",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Invalid month or format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitoring/system": {
            "get": {
                "tags": ["Monitoring"],
                "summary": "Process counters of the monitoring service",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
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
