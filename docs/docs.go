// Package docs registers the swagger document of the JSON endpoints.
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
        "/api/contests/{id}/countdown": {
            "get": {
                "description": "Time left until the contest deadline, broken into days, hours, minutes and seconds. Ended contests report zeros.",
                "produces": ["application/json"],
                "tags": ["contests"],
                "summary": "Contest countdown",
                "parameters": [
                    {"type": "string", "description": "contest id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.CountdownView"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/leaderboard": {
            "get": {
                "description": "Users ranked by win count. Search filters by display name without changing ranks.",
                "produces": ["application/json"],
                "tags": ["leaderboard"],
                "summary": "Leaderboard",
                "parameters": [
                    {"type": "string", "description": "display name substring", "name": "search", "in": "query"},
                    {"type": "integer", "description": "1-based page", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LeaderboardResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "countdown.TimeRemaining": {
            "type": "object",
            "properties": {
                "days": {"type": "integer"},
                "hours": {"type": "integer"},
                "minutes": {"type": "integer"},
                "seconds": {"type": "integer"}
            }
        },
        "services.CountdownView": {
            "type": "object",
            "properties": {
                "contest_id": {"type": "string"},
                "deadline": {"type": "string"},
                "ended": {"type": "boolean"},
                "remaining": {"$ref": "#/definitions/countdown.TimeRemaining"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "displayName": {"type": "string"},
                "email": {"type": "string"},
                "photoURL": {"type": "string"},
                "role": {"type": "string"},
                "winCount": {"type": "integer"}
            }
        },
        "models.LeaderboardEntry": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "handlers.LeaderboardResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/models.LeaderboardEntry"}},
                "page": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ContestHub API",
	Description:      "Live countdowns and leaderboard data behind the ContestHub web front end.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
