// Package docs holds the OpenAPI description served at /swagger. Keep it in
// sync with the godoc annotations on the handlers (swag init -g cmd/server/main.go).
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
        "/auth/login": {
            "post": {
                "description": "Authenticate user with email and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "parameters": [
                    {
                        "description": "User login credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Login successful - returns JWT token and user data",
                        "schema": {"$ref": "#/definitions/models.LoginResponse"}
                    },
                    "400": {
                        "description": "Bad request - invalid input data",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized - invalid credentials",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "429": {
                        "description": "Too many login attempts",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    }
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports dependency status and live connection counters",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.HealthResponse"}
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {"$ref": "#/definitions/handlers.HealthResponse"}
                    }
                }
            }
        },
        "/messages/private/{userId}": {
            "get": {
                "description": "Returns the most recent private messages between the caller and another user, oldest first",
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "Private conversation history",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Other user ID",
                        "name": "userId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Page size (default 50, max 100)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.PrivateHistoryResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    }
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Establish a WebSocket connection for real-time room chat. Frames are JSON envelopes {type, data, timestamp}.",
                "tags": ["websocket"],
                "summary": "WebSocket connection",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Session token returned by login",
                        "name": "token",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "101": {"description": "Switching Protocols - WebSocket connection established"},
                    "401": {
                        "description": "Missing or invalid token",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    },
                    "429": {
                        "description": "Too many connection attempts",
                        "schema": {"$ref": "#/definitions/models.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"type": "string"}},
                "hub": {"$ref": "#/definitions/websocket.HubStats"},
                "onlineUsers": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "handlers.PrivateHistoryResponse": {
            "type": "object",
            "properties": {
                "lastSeen": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/websocket.MessagePayload"}},
                "online": {"type": "boolean"},
                "userId": {"type": "string"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "details": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/models.UserResponse"}
            }
        },
        "models.UserResponse": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "isOnline": {"type": "boolean"},
                "lastSeen": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "websocket.MessagePayload": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "id": {"type": "string"},
                "isPrivate": {"type": "boolean"},
                "readBy": {"type": "array", "items": {"$ref": "#/definitions/websocket.ReadByEntry"}},
                "recipient": {"type": "string"},
                "room": {"type": "string"},
                "sender": {"$ref": "#/definitions/websocket.UserInfo"},
                "timestamp": {"type": "string"}
            }
        },
        "websocket.ReadByEntry": {
            "type": "object",
            "properties": {
                "readAt": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "websocket.UserInfo": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "id": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "websocket.HubStats": {
            "type": "object",
            "properties": {
                "connections": {"type": "integer"},
                "members": {"type": "integer"},
                "rooms": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Room Chat API",
	Description:      "Real-time room chat: login over HTTP, then chat over a websocket.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
