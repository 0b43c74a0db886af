// Package docs регистрирует OpenAPI-описание HTTP API для /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Проверка зависимостей",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        },
        "/api/v1/products": {
            "get": {
                "tags": ["products"],
                "summary": "Недавно обновлённые товары",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "Максимум товаров", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProductListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/products/search": {
            "get": {
                "tags": ["products"],
                "summary": "Поиск товаров по названию",
                "description": "Регистр, пунктуация и диакритика не учитываются",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Строка поиска", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "description": "Максимум товаров", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProductListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/products/{id}": {
            "get": {
                "tags": ["products"],
                "summary": "Товар с последней ценой",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProductResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/products/{id}/history": {
            "get": {
                "tags": ["products"],
                "summary": "История цен товара",
                "description": "От новых наблюдений к старым",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Максимум наблюдений", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PriceHistoryResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/stores": {
            "get": {
                "tags": ["stores"],
                "summary": "Все магазины по имени",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StoreListResponse"}}
                }
            }
        },
        "/api/v1/stores/{id}": {
            "get": {
                "tags": ["stores"],
                "summary": "Магазин по ID",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "ID магазина", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StoreResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/scraper/ingest": {
            "post": {
                "tags": ["scraper"],
                "summary": "Приём батча скрапинга",
                "description": "Все позиции принимаются одной транзакцией или отклоняются целиком",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Батч одного магазина", "name": "batch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IngestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/IngestResponse"}},
                    "400": {"description": "Ошибка валидации, index указывает на позицию", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/scraper/stats": {
            "get": {
                "tags": ["scraper"],
                "summary": "Счётчики каталога",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "index": {"type": "integer"},
                "field": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ProductResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "store_id": {"type": "integer"},
                "store_name": {"type": "string"},
                "category_id": {"type": "integer"},
                "category": {"type": "string"},
                "name": {"type": "string"},
                "url": {"type": "string"},
                "image": {"type": "string"},
                "in_stock": {"type": "boolean"},
                "is_deleted": {"type": "boolean"},
                "last_scraped_at": {"type": "string"},
                "created_at": {"type": "string"},
                "price": {"type": "string", "example": "1999.90"},
                "currency": {"type": "string", "example": "MKD"},
                "price_scraped_at": {"type": "string"}
            }
        },
        "ProductListResponse": {
            "type": "object",
            "properties": {
                "products": {"type": "array", "items": {"$ref": "#/definitions/ProductResponse"}},
                "count": {"type": "integer"},
                "query": {"type": "string"}
            }
        },
        "PricePointResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "price": {"type": "string"},
                "currency": {"type": "string"},
                "scraped_at": {"type": "string"}
            }
        },
        "PriceHistoryResponse": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/PricePointResponse"}},
                "count": {"type": "integer"}
            }
        },
        "StoreResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "url": {"type": "string"},
                "currency": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "StoreListResponse": {
            "type": "object",
            "properties": {
                "stores": {"type": "array", "items": {"$ref": "#/definitions/StoreResponse"}},
                "count": {"type": "integer"}
            }
        },
        "StatsResponse": {
            "type": "object",
            "properties": {
                "stores": {"type": "integer"},
                "products": {"type": "integer"},
                "prices": {"type": "integer"}
            }
        },
        "IngestItemRequest": {
            "type": "object",
            "required": ["name", "price", "url"],
            "properties": {
                "name": {"type": "string"},
                "price": {"type": "number", "example": 1999.9},
                "url": {"type": "string"},
                "currency": {"type": "string"},
                "image": {"type": "string"},
                "category": {"type": "string"},
                "in_stock": {"type": "boolean"}
            }
        },
        "IngestRequest": {
            "type": "object",
            "required": ["store_url", "items"],
            "properties": {
                "store_url": {"type": "string", "example": "https://www.anhoch.com"},
                "category": {"type": "string"},
                "mark_missing": {"type": "boolean"},
                "scraped_at": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/IngestItemRequest"}}
            }
        },
        "IngestResponse": {
            "type": "object",
            "properties": {
                "store_id": {"type": "integer"},
                "products_touched": {"type": "integer"},
                "prices_appended": {"type": "integer"},
                "products_created": {"type": "integer"},
                "marked_missing": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo содержит метаданные API, доступные для изменения при старте
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Price Tracker API",
	Description:      "Каталог товаров интернет-магазинов и история их цен",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
