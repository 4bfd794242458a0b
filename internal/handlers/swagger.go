package handlers

// @title Auto Service Billing API
// @version 1.0
// @description Tax-inclusive pricing, checkout, service history and receipt reprints for an auto service shop.
// @description Prices shown to customers include federal and provincial tax; reprints decompose them with the configuration frozen at sale time.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name pricing
// @tag.description Live quotes and tax breakdowns

// @tag.name checkout
// @tag.description Cart finalization

// @tag.name service-records
// @tag.description Service history

// @tag.name receipts
// @tag.description Consolidated receipts and snapshot reprints

// @tag.name settings
// @tag.description Business profile and tax rates
