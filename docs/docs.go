// Package docs holds the OpenAPI description of the booking API, registered
// with swag so gin-swagger can serve it under /swagger.
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
        "/read": {
            "get": {
                "description": "check=version returns the build marker. action=fetchpricing, fetchregistrations (with date, weak ETag) and fetchdashboardstats return reports. Without action, date returns the taken slots of that date.",
                "produces": ["application/json"],
                "tags": ["Booking"],
                "summary": "Read verb",
                "operationId": "read",
                "parameters": [
                    {"type": "string", "description": "version", "name": "check", "in": "query"},
                    {"type": "string", "description": "fetchpricing | fetchregistrations | fetchdashboardstats", "name": "action", "in": "query"},
                    {"type": "string", "example": "2025-03-08", "description": "Booking date", "name": "date", "in": "query"},
                    {"type": "string", "description": "Return 304 if ETag matches (registrations)", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/write": {
            "post": {
                "description": "action=createOrder opens a payment order. action=verifyAndSave verifies the payment signature and commits the booking. action=updatePricing sets one day's price.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Booking"],
                "summary": "Write verb",
                "operationId": "write",
                "parameters": [
                    {"description": "Write payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.WriteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Verification failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Day not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Slots already booked", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Payload too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Payment gateway error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "description": "Streams a document stored by verifyAndSave. Images and PDFs are served inline under a sandboxing CSP; anything else is a download.",
                "produces": ["application/octet-stream"],
                "tags": ["Documents"],
                "summary": "Download an uploaded document",
                "operationId": "getDocument",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "error"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "conflict"},
                "message": {"type": "string", "example": "Double booked!"},
                "conflicts": {"type": "array", "items": {"type": "string"}, "example": ["09 AM - 10 AM"]}
            }
        },
        "handlers.WriteRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "example": "verifyAndSave"},
                "amount": {"type": "string", "example": "50000"},
                "orderId": {"type": "string", "example": "order_Nx1"},
                "paymentId": {"type": "string", "example": "pay_Nx1"},
                "signature": {"type": "string"},
                "razorpay_order_id": {"type": "string"},
                "razorpay_payment_id": {"type": "string"},
                "razorpay_signature": {"type": "string"},
                "bookingData": {"type": "object", "additionalProperties": true},
                "documentPayload": {"type": "string"},
                "documentName": {"type": "string"},
                "photoIdData": {"type": "string"},
                "photoIdName": {"type": "string"},
                "day": {"type": "string", "example": "Monday"},
                "price": {"type": "string", "example": "1200"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Turf Booking API",
	Description:      "Slot availability, payment orders and conflict-free booking commits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
