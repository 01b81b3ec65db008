// Package docs holds the OpenAPI document served under /api/docs. It has the
// layout of swag output; regenerate with `swag init -g cmd/server/main.go`
// after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "dev@mkulima.co.ke"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/asha/chat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Runs one conversational turn for the caller's session and returns the reply, UI actions and updated session memory.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assistant"],
                "summary": "Send a chat message to Asha",
                "parameters": [
                    {
                        "description": "Chat turn",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ChatResponse"}},
                    "400": {"description": "Invalid JSON body or fields", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "401": {"description": "Missing or invalid bearer token", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "403": {"description": "Session belongs to another user", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "413": {"description": "Request body too large", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/logistics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns transport distance and cost for a crop between two places. Matching is case-insensitive.",
                "produces": ["application/json"],
                "tags": ["logistics"],
                "summary": "Look up a logistics route",
                "parameters": [
                    {"type": "string", "description": "Crop name", "name": "crop", "in": "query", "required": true},
                    {"type": "string", "description": "Origin town", "name": "origin", "in": "query", "required": true},
                    {"type": "string", "description": "Destination town", "name": "destination", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.DataResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/models.Route"}}}
                            ]
                        }
                    },
                    "400": {"description": "Missing parameter", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "401": {"description": "Missing or invalid bearer token", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "No route found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Returns 200 OK if the service is running. Does not check dependencies.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check (liveness probe)",
                "responses": {
                    "200": {"description": "Service is alive", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Checks that the relational store and Redis answer a ping",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "All services healthy", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "One or more services unhealthy", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "services": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "models.Action": {
            "type": "object",
            "properties": {
                "payload": {"type": "object", "additionalProperties": {}},
                "type": {
                    "type": "string",
                    "enum": ["OPEN_LISTING", "ADD_TO_CART", "OPEN_CART", "CHECKOUT", "PREFILL_CHECKOUT", "NAVIGATE"]
                }
            }
        },
        "models.ChatRequest": {
            "type": "object",
            "properties": {
                "clientContext": {"$ref": "#/definitions/models.ClientContext"},
                "language": {"type": "string", "enum": ["en", "sw"]},
                "message": {"type": "string"},
                "sessionId": {"type": "string"}
            }
        },
        "models.ChatResponse": {
            "type": "object",
            "properties": {
                "actions": {"type": "array", "items": {"$ref": "#/definitions/models.Action"}},
                "intent": {"type": "string", "enum": ["marketplace", "climate", "orders", "profile", "general"]},
                "memory": {"$ref": "#/definitions/models.SessionState"},
                "ok": {"type": "boolean"},
                "reply": {"type": "string"},
                "uiHint": {"$ref": "#/definitions/models.UIHint"}
            }
        },
        "models.ClientContext": {
            "type": "object",
            "properties": {
                "activeFarmId": {"type": "string"},
                "activeTab": {"type": "string"},
                "cartCount": {"type": "integer"}
            }
        },
        "models.Profile": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "county": {"type": "string"},
                "fullName": {"type": "string"},
                "phone": {"type": "string"},
                "ward": {"type": "string"}
            }
        },
        "models.Route": {
            "type": "object",
            "properties": {
                "carrier": {"type": "string"},
                "costPerKg": {"type": "number"},
                "crop": {"type": "string"},
                "currency": {"type": "string"},
                "destination": {"type": "string"},
                "distanceKm": {"type": "number"},
                "id": {"type": "string"},
                "origin": {"type": "string"},
                "transitHours": {"type": "number"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.SessionState": {
            "type": "object",
            "properties": {
                "language": {"type": "string", "enum": ["en", "sw"]},
                "lastFarmId": {"type": "string"},
                "lastIntent": {"type": "string"},
                "lastListingId": {"type": "string"},
                "pendingAction": {"type": "string", "enum": ["checkout"], "x-nullable": true},
                "profileDraft": {"$ref": "#/definitions/models.Profile"},
                "stage": {"type": "string", "enum": ["chat", "collect_profile", "confirm_checkout"]}
            }
        },
        "models.UIHint": {
            "type": "object",
            "properties": {
                "highlightId": {"type": "string"},
                "navigateTo": {"type": "string"}
            }
        },
        "utils.DataResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "ok": {"type": "boolean"}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "ok": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and a Firebase ID token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Asha Assistant API",
	Description:      "Conversational farming assistant backed by the Mkulima marketplace, farm forecasts and logistics routes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
