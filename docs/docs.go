// Package docs registers the OpenAPI description served at /docs.
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
        "/generate": {
            "post": {
                "description": "Validates the request and returns a React component named App. When the AI backend is unavailable a locally generated preview is returned with degraded=true.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generate a website component",
                "parameters": [
                    {
                        "description": "Business description",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.GenerateRequest"}
                    },
                    {
                        "type": "string",
                        "description": "remote (default) or local",
                        "name": "mode",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.GenerateRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Acme Bakery"},
                "industry": {"type": "string", "example": "Food & Beverage"},
                "audience": {"type": "string", "example": "Local families"},
                "color": {"type": "string", "example": "warm green"},
                "sections": {"type": "array", "items": {"type": "string"}, "example": ["About", "Products", "Contact"]}
            }
        },
        "handlers.GenerateResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "degraded": {"type": "boolean"},
                "notice": {"type": "string"},
                "source": {"type": "string"},
                "reason": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "middleware.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "string"},
                "retry_after_ms": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:5000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Smart Genesis API",
	Description:      "Generates single-component React websites from a short business description.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
