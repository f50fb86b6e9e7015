package http

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const swaggerDocURL = "/swagger/doc.json"

// RegisterSwaggerDocs serves the UI under /swagger/ backed by the registered swag doc.
// @Summary Swagger documentation
// @Description Interactive API documentation for the inventory ledger
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router) {
	router.Handle("/swagger", http.RedirectHandler("/swagger/index.html", http.StatusMovedPermanently))
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL(swaggerDocURL),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))
}
