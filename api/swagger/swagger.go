package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academia API",
        "description": "Student, modality and payment records for a gym",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Staff login wall"},
        {"name": "Modalities", "description": "Activity catalogue"},
        {"name": "Students", "description": "Student registry"},
        {"name": "Payments", "description": "Payments, history and overdue report"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff user",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}],
                "responses": {"200": {"description": "Token pair"}, "401": {"description": "Invalid refresh token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}],
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "User info"}}
            }
        },
        "/modalities": {
            "get": {
                "tags": ["Modalities"],
                "summary": "List modalities",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Modalities ordered by name"}}
            },
            "post": {
                "tags": ["Modalities"],
                "summary": "Create modality",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ModalityInput"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate name"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "active", "type": "string", "enum": ["true", "false", "all"], "default": "true"},
                    {"in": "query", "name": "q", "type": "string"}
                ],
                "responses": {"200": {"description": "Students ordered by name"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentInput"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}, "409": {"description": "Duplicate identity"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Student"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentInput"}}
                ],
                "responses": {"200": {"description": "Updated"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student and their payments",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/students/{id}/photo": {
            "put": {
                "tags": ["Students"],
                "summary": "Upload student photo",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "formData", "name": "photo", "required": true, "type": "file"}
                ],
                "responses": {"200": {"description": "Student with photo"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Remove student photo",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Removed"}}
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PaymentInput"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
            }
        },
        "/payments/{id}": {
            "get": {
                "tags": ["Payments"],
                "summary": "Get payment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Payment"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Payments"],
                "summary": "Update payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PaymentInput"}}
                ],
                "responses": {"200": {"description": "Updated"}}
            },
            "delete": {
                "tags": ["Payments"],
                "summary": "Delete payment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/payments/history": {
            "get": {
                "tags": ["Payments"],
                "summary": "Payment history, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "Payments with total_amount in meta"}, "400": {"description": "Invalid range"}}
            }
        },
        "/payments/history/export": {
            "get": {
                "tags": ["Payments"],
                "summary": "Export payment history",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/payments/overdue": {
            "get": {
                "tags": ["Payments"],
                "summary": "Unpaid payments due today or earlier",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Payments with total_amount in meta"}}
            }
        },
        "/payments/overdue/export": {
            "get": {
                "tags": ["Payments"],
                "summary": "Export overdue payments",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}],
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "ModalityInput": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string", "maxLength": 100}}
        },
        "StudentInput": {
            "type": "object",
            "required": ["full_name", "document", "id_number", "birth_date", "modality_ids"],
            "properties": {
                "full_name": {"type": "string"},
                "document": {"type": "string"},
                "id_number": {"type": "string"},
                "sex": {"type": "string", "enum": ["M", "F", "O"]},
                "birth_date": {"type": "string", "format": "date"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "street": {"type": "string"},
                "number": {"type": "string"},
                "neighborhood": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "enrolled_on": {"type": "string", "format": "date"},
                "active": {"type": "boolean"},
                "modality_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "PaymentInput": {
            "type": "object",
            "required": ["student_id", "amount", "due_date", "method"],
            "properties": {
                "student_id": {"type": "string"},
                "amount": {"type": "string", "example": "150.00"},
                "payment_date": {"type": "string", "format": "date"},
                "due_date": {"type": "string", "format": "date"},
                "method": {"type": "string", "enum": ["PIX", "CARD", "CASH", "BANK_TRANSFER"]},
                "paid": {"type": "boolean"},
                "note": {"type": "string"}
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}}
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
