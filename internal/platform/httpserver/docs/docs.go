// Package docs registers the OpenAPI description served under /swagger/.
// Regenerate with: swag init -g internal/platform/httpserver/server.go -o internal/platform/httpserver/docs
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
        "/memes": {
            "get": {"tags": ["meme-contest"], "summary": "List contest entries", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Viewer address", "name": "viewer", "in": "query"},
                    {"type": "boolean", "description": "Bypass the entry cache", "name": "fresh", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Ledger unavailable"}}},
            "post": {"tags": ["meme-contest"], "summary": "Generate a meme image", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "502": {"description": "Generator failed"}}}
        },
        "/memes/submit": {
            "post": {"tags": ["meme-contest"], "summary": "Submit pinned meme content",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/memes/register": {
            "post": {"tags": ["meme-contest"], "summary": "Register content as IP",
                "responses": {"200": {"description": "OK"}, "502": {"description": "Registry failed"}}}
        },
        "/memes/{id}": {
            "get": {"tags": ["meme-contest"], "summary": "Get one contest entry",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/memes/{id}/vote": {
            "post": {"tags": ["meme-contest"], "summary": "Vote for an entry",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Confirmed"}, "202": {"description": "Pending confirmation"}, "403": {"description": "Wallet rejected"}, "409": {"description": "Precondition failed"}}}
        },
        "/memes/{id}/eligibility": {
            "get": {"tags": ["meme-contest"], "summary": "Mint eligibility of an entry",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/memes/{id}/mint-nft": {
            "post": {"tags": ["meme-contest"], "summary": "Register and mint an eligible entry",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Minted"}, "409": {"description": "In progress or minted"}, "422": {"description": "Insufficient votes"}, "502": {"description": "Mint failed after registration"}}}
        },
        "/memes/{id}/mint-nft/retry": {
            "post": {"tags": ["meme-contest"], "summary": "Resume an orphaned mint",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Minted"}, "409": {"description": "No orphan"}}}
        },
        "/metadata/{cid}": {
            "get": {"tags": ["meme-contest"], "summary": "Fetch pinned content",
                "parameters": [{"type": "string", "name": "cid", "in": "path", "required": true}],
                "responses": {"200": {"description": "Raw content"}, "404": {"description": "Not Found"}}}
        },
        "/auctions": {
            "get": {"tags": ["auctions"], "summary": "List auctions",
                "parameters": [{"type": "boolean", "name": "active", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["auctions"], "summary": "Create an auction for a minted entry",
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already active"}, "422": {"description": "Not minted"}}}
        },
        "/auctions/place-bid": {
            "post": {"tags": ["auctions"], "summary": "Bid on an auction",
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "Accepted"}, "409": {"description": "Conflict"}, "422": {"description": "Bid too low"}}}
        },
        "/auctions/{id}": {
            "get": {"tags": ["auctions"], "summary": "Get one auction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/auctions/{id}/bids": {
            "get": {"tags": ["auctions"], "summary": "Bid history of an auction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auctions/{id}/settle": {
            "post": {"tags": ["auctions"], "summary": "End an auction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Not the seller"}}}
        },
        "/agent/allowance": {
            "get": {"tags": ["agent"], "summary": "Remaining agent allowance",
                "parameters": [{"type": "string", "name": "account", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "No delegation"}}},
            "post": {"tags": ["agent"], "summary": "Attach the agent to a Safe",
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/agent/spend": {
            "post": {"tags": ["agent"], "summary": "Spend from the agent allowance",
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "Executed"}, "409": {"description": "Stale nonce"}, "422": {"description": "Allowance exceeded"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "artix contest coordinator",
	Description:      "Meme contest lifecycle: entries, votes, mints, auctions and the delegated agent allowance.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
