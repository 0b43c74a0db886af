package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	_ "github.com/voyager-tech/go-backend/docs" // регистрация swagger-спецификации
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(ingestUC usecase.IngestUC, catalogUC usecase.CatalogUC, checks map[string]Pinger, catalogCfg *cfg.CatalogCfg) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(requestLogger(r.logger))
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Get("/health", NewHealthHandler(checks).health)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerProductRoutes(v1, NewProductHandler(catalogUC, catalogCfg, r.logger))
		registerStoreRoutes(v1, NewStoreHandler(catalogUC, r.logger))
		registerScraperRoutes(v1, NewScraperHandler(ingestUC, catalogUC, r.logger))
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.recentProducts)
		pr.Get("/search", h.searchProducts)
		pr.Get("/{id}", h.getProduct)
		pr.Get("/{id}/history", h.priceHistory)
	})
}

func registerStoreRoutes(router chi.Router, h *StoreHandler) {
	router.Route("/stores", func(st chi.Router) {
		st.Get("/", h.listStores)
		st.Get("/{id}", h.getStore)
	})
}

func registerScraperRoutes(router chi.Router, h *ScraperHandler) {
	router.Route("/scraper", func(sc chi.Router) {
		sc.Get("/stats", h.stats)
		sc.Post("/ingest", h.ingest)
	})
}
