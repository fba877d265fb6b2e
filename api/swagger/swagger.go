package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Special Academy Admin Console",
        "description": "JSON surface of the admin console. Every screen also renders HTML for browsers; send Accept: application/json to receive the envelope below.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "tags": [
        {"name": "Authentication", "description": "Admin sign in and sign out"},
        {"name": "Dashboard", "description": "Entity counts and recent activity"},
        {"name": "Entities", "description": "users, categories, subcategories and items"},
        {"name": "Profile", "description": "The signed-in admin's own account"},
        {"name": "Preferences", "description": "Per-browser display preferences"},
        {"name": "Uploads", "description": "Item PDF storage"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "All dependencies answer"},
                    "503": {"description": "At least one dependency failed"}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign in as an admin",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginForm"}}
                ],
                "responses": {
                    "200": {"description": "Signed in; the session cookie is set", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account is not an admin", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "responses": {"204": {"description": "Session cleared"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{entity}": {
            "get": {
                "tags": ["Entities"],
                "summary": "List records newest first",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"in": "query", "name": "q", "type": "string", "description": "Case-insensitive filter"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Entities"],
                "summary": "Create a record",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another submission is in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{entity}/{id}": {
            "put": {
                "tags": ["Entities"],
                "summary": "Update a record",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"$ref": "#/parameters/id"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Entities"],
                "summary": "Delete a record",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"$ref": "#/parameters/id"},
                    {"in": "query", "name": "confirm", "type": "string", "required": true, "enum": ["yes"]}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "400": {"description": "Deletion was not confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{entity}/export": {
            "get": {
                "tags": ["Entities"],
                "summary": "Export the filtered list",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "q", "type": "string"}
                ],
                "responses": {"200": {"description": "File attachment"}}
            }
        },
        "/profile": {
            "get": {
                "tags": ["Profile"],
                "summary": "Current admin profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Profile"],
                "summary": "Update the current admin profile",
                "consumes": ["application/json", "multipart/form-data"],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/preferences/theme": {
            "post": {
                "tags": ["Preferences"],
                "summary": "Toggle dark mode",
                "parameters": [
                    {"in": "formData", "name": "darkMode", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload an item PDF",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "file", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "415": {"description": "Not a PDF", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/signed/{token}": {
            "get": {
                "tags": ["Uploads"],
                "summary": "Download a stored PDF through a signed link",
                "produces": ["application/pdf"],
                "parameters": [
                    {"in": "path", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF body"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "entity": {"in": "path", "name": "entity", "type": "string", "required": true, "enum": ["users", "categories", "subcategories", "items"]},
        "id": {"in": "path", "name": "id", "type": "string", "required": true}
    },
    "definitions": {
        "LoginForm": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
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
