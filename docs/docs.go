// Package docs holds the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/agrivoice/main.go --parseInternal
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
        "/v1/ask": {
            "post": {
                "description": "Runs the transcript through language detection, intent resolution and answer synthesis,\nfalling back to the backend pipeline and finally to a fixed apology. The answer is\nspoken in the client's speech session when auto-speak is on.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Ask a question",
                "parameters": [
                    {
                        "description": "Transcript and client id",
                        "name": "utterance",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.Utterance"}
                    },
                    {
                        "type": "string",
                        "description": "Client id when the body has none",
                        "name": "X-Client-Id",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorBody"}}
                }
            }
        },
        "/v1/history/{client}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Conversation log",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Client id",
                        "name": "client",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/message.Entry"}}
                    }
                }
            }
        },
        "/v1/speak": {
            "post": {
                "description": "Tries the direct provider, then the backend proxy, then the native engine. When no\nserver tier produced audio the response asks the client to synthesize locally.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["speech"],
                "summary": "Speak a sentence",
                "parameters": [
                    {
                        "description": "Text, locale, voice and rate",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.SpeakRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.Speech"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.errorBody"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.errorBody"}}
                }
            }
        }
    },
    "definitions": {
        "http.errorBody": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "message.Answer": {
            "type": "object",
            "properties": {
                "language": {"type": "string", "enum": ["hi", "en"]},
                "text": {"type": "string"}
            }
        },
        "message.Entry": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "ai"]},
                "text": {"type": "string"}
            }
        },
        "message.Intent": {
            "type": "object",
            "properties": {
                "city": {"type": "string"},
                "commodity": {"type": "string"},
                "kind": {"type": "string"},
                "ph": {"type": "number"}
            }
        },
        "message.Result": {
            "type": "object",
            "properties": {
                "answer": {"$ref": "#/definitions/message.Answer"},
                "client_id": {"type": "string"},
                "error": {"type": "string"},
                "id": {"type": "string"},
                "intent": {"$ref": "#/definitions/message.Intent"},
                "language": {"type": "string", "enum": ["hi", "en"]},
                "phase": {"type": "string"},
                "source": {"type": "string", "enum": ["synthesis", "backend", "apology"]},
                "speech": {"$ref": "#/definitions/message.Speech"},
                "statuses": {"type": "array", "items": {"type": "string"}},
                "transcript": {"type": "string"}
            }
        },
        "message.SpeakRequest": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "language": {"type": "string"},
                "rate": {"type": "number"},
                "text": {"type": "string"},
                "voice": {"type": "string"}
            }
        },
        "message.Speech": {
            "type": "object",
            "properties": {
                "audio_base64": {"type": "string"},
                "client_synthesis": {"type": "boolean"},
                "content_type": {"type": "string"},
                "locale": {"type": "string"},
                "rate": {"type": "number"},
                "tier": {"type": "string"},
                "voice": {"type": "string"}
            }
        },
        "message.Utterance": {
            "type": "object",
            "properties": {
                "auto_speak": {"type": "boolean"},
                "client_id": {"type": "string"},
                "id": {"type": "string"},
                "language": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
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
	Title:            "agrivoice API",
	Description:      "Bilingual crop price and farm advisory assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
