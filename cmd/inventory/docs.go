package main

// @title Inventory Service API
// @version 1.0
// @description Multi-branch stock ledger, order fulfillment and reporting with full observability (logging, tracing, metrics)

// @contact.name API Support

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Inventory
// @tag.description Stock ledger endpoints

// @tag.name Orders
// @tag.description Point of sale orders

// @tag.name Reports
// @tag.description Sales and stock reports

// @tag.name Health
// @tag.description Health check endpoints

// @tag.name Swagger
// @tag.description Swagger documentation endpoints
