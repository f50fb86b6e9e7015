// Package docs holds the registered Swagger document of the inventory service.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/inventory": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "List inventory",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/inventory/add": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Add stock",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/StockRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/inventory/adjust": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Adjust stock",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/StockRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/inventory/transfer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Transfer stock",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/TransferRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/inventory/branches/{id}/products": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Products available at a branch",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/inventory/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Stock movement history",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/inventory/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Inventory statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/orders": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Create order",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/OrderRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/reports/summary": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Summary report",
                "parameters": [{"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/reports/branches/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Branch report",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/reports/low-stock": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Low stock",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        }
    },
    "definitions": {
        "Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"type": "string"}
            }
        },
        "StockRequest": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "note": {"type": "string"}
            }
        },
        "TransferRequest": {
            "type": "object",
            "properties": {
                "from_branch_id": {"type": "integer"},
                "to_branch_id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "note": {"type": "string"}
            }
        },
        "OrderRequest": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "integer"},
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "product_id": {"type": "integer"},
                            "quantity": {"type": "integer"}
                        }
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8083",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Inventory Service API",
	Description:      "Multi-branch stock ledger, order fulfillment and reporting",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
