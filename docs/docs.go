// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/predict": {
            "post": {
                "tags": ["predict"],
                "summary": "Predict a receipt",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.PredictRequest"}},
                    {"in": "header", "name": "Idempotency-Key", "type": "string"},
                    {"in": "header", "name": "X-Bubble-Signature", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Missing image or invalid body", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "422": {"description": "Image could not be fetched or decoded", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "502": {"description": "OCR service failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "504": {"description": "Upstream timeout", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extract": {
            "post": {
                "tags": ["predict"],
                "summary": "Extract fields from OCR text",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.ExtractRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/feedback": {
            "post": {
                "tags": ["feedback"],
                "summary": "Submit a correction",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.FeedbackRequest"}},
                    {"in": "header", "name": "X-Bubble-Signature", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "401": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "502": {"description": "Record store failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue an admin token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "401": {"description": "Invalid admin token", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "503": {"description": "Token issuance not configured", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/admin/train": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Train the category model",
                "parameters": [
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/handler.TrainRequest"}}
                ],
                "responses": {
                    "200": {"description": "Trained, or skipped with a reason", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid since or min_samples", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "500": {"description": "Model store failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/admin/models": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List model versions",
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer", "default": 20}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}
                }
            }
        },
        "/admin/models/current": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Show the serving model",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}
                }
            }
        },
        "/admin/models/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Reload the latest model",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "500": {"description": "Model store failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/admin/receipts/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Export receipts",
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "default": "csv", "enum": ["csv", "xlsx"]},
                    {"in": "query", "name": "status", "type": "string", "enum": ["predicted", "corrected"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Unknown format or status", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"$ref": "#/definitions/handler.APIError"}
            }
        },
        "handler.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "data": {}
            }
        },
        "handler.HintRequest": {
            "type": "object",
            "properties": {
                "vendor": {"type": "string"},
                "amount": {"type": "string"},
                "payment_method": {"type": "string"}
            }
        },
        "handler.PredictRequest": {
            "type": "object",
            "properties": {
                "doc_id": {"type": "string"},
                "image_url": {"type": "string"},
                "image_base64": {"type": "string"},
                "hint": {"$ref": "#/definitions/handler.HintRequest"}
            }
        },
        "handler.ExtractRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "doc_id": {"type": "string"},
                "text": {"type": "string"},
                "hint": {"$ref": "#/definitions/handler.HintRequest"}
            }
        },
        "handler.CorrectionRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "vendor": {"type": "string"},
                "date": {"type": "string"},
                "total": {"type": "integer"},
                "payment_method": {"type": "string"}
            }
        },
        "handler.FeedbackRequest": {
            "type": "object",
            "properties": {
                "receipt_id": {"type": "string"},
                "doc_id": {"type": "string"},
                "correct": {"$ref": "#/definitions/handler.CorrectionRequest"},
                "reason": {"type": "string"}
            }
        },
        "handler.TrainRequest": {
            "type": "object",
            "properties": {
                "since": {"type": "string"},
                "min_samples": {"type": "integer"}
            }
        },
        "handler.TokenRequest": {
            "type": "object",
            "required": ["admin_token"],
            "properties": {
                "admin_token": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "receiptai API",
	Description:      "Receipt OCR, field extraction and expense category prediction.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
