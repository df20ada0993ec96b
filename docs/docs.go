// Package docs は /swagger で配る OpenAPI 定義。手で管理しているので handler の注釈と合わせて更新する
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
        "/books": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "List books",
                "parameters": [
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "author", "in": "query"},
                    {"type": "boolean", "name": "available", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.BookResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Add a book",
                "parameters": [
                    {"name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/catalog.CreateBookRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.BookResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/books/bulk": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Add books in one all-or-nothing batch",
                "parameters": [
                    {"name": "books", "in": "body", "required": true, "schema": {"$ref": "#/definitions/catalog.BulkCreateBooksRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.BookResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/books/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Get a book",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.BookResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/books/{id}/borrow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lending"],
                "summary": "Borrow one copy of a book",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "user_id", "in": "query"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/lending.BorrowRecordResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierr.errorDTO"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/books/{id}/return": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lending"],
                "summary": "Return a borrowed book",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "user_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/lending.BorrowRecordResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierr.errorDTO"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/borrowed_books": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lending"],
                "summary": "List borrow records",
                "parameters": [
                    {"type": "integer", "name": "user_id", "in": "query"},
                    {"type": "integer", "name": "book_id", "in": "query"},
                    {"type": "boolean", "name": "active", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/lending.BorrowRecordResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        },
        "/borrowed_books/summary_db": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lending"],
                "summary": "Borrow counts per user",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/lending.SummaryResponse"}}}
                }
            }
        },
        "/borrowed_books/{borrow_ulid}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lending"],
                "summary": "Get a borrow record",
                "parameters": [
                    {"type": "string", "name": "borrow_ulid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/lending.BorrowRecordResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierr.errorDTO"}}
                }
            }
        }
    },
    "definitions": {
        "apierr.errorDTO": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"}
                    }
                }
            }
        },
        "catalog.BookResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "category": {"type": "string"},
                "quantity": {"type": "integer"},
                "available": {"type": "boolean"}
            }
        },
        "catalog.CreateBookRequest": {
            "type": "object",
            "required": ["id", "title", "author"],
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "category": {"type": "string"},
                "quantity": {"type": "integer"},
                "available": {"type": "boolean"}
            }
        },
        "catalog.BulkCreateBooksRequest": {
            "type": "object",
            "properties": {
                "books": {"type": "array", "items": {"$ref": "#/definitions/catalog.CreateBookRequest"}}
            }
        },
        "lending.BorrowRecordResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "borrow_ulid": {"type": "string"},
                "user_id": {"type": "integer"},
                "book_id": {"type": "integer"},
                "borrow_date": {"type": "string"},
                "return_date": {"type": "string"},
                "returned": {"type": "boolean"}
            }
        },
        "lending.SummaryResponse": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "borrow_count": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Library Books API",
	Description:      "Book inventory, borrow/return and per-user borrow counters.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
