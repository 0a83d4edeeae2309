// Package api exposes the receipt scanner over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// BasicAuth holds basic authentication credentials. Empty credentials
// disable authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for receipts, items and analytics
type Server struct {
	service *receipt.Service
	auth    BasicAuth
	router  *chi.Mux
}

// NewServer creates a new Server with all routes configured
func NewServer(service *receipt.Service, auth BasicAuth) *Server {
	s := &Server{
		service: service,
		auth:    auth,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         3600,
	}))
	r.Use(s.requireAuth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/receipts", func(r chi.Router) {
			r.Post("/scan", s.handleScanReceipt)
			r.Post("/", s.handleCreateReceipt)
			r.Get("/", s.handleListReceipts)
			r.Get("/{id}", s.handleGetReceipt)
			r.Get("/{id}/file", s.handleGetReceiptFile)
			r.Patch("/{id}", s.handleUpdateReceipt)
			r.Delete("/{id}", s.handleDeleteReceipt)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/rename", s.handleRenameItem)
			r.Get("/{name}", s.handleGetItem)
			r.Get("/{name}/stats", s.handleItemStats)
			r.Get("/{name}/chart", s.handleItemChart)
		})

		r.Get("/analytics/stores", s.handleAnalyticsStores)

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", s.handleListStores)
			r.Post("/", s.handleAddStore)
			r.Delete("/{name}", s.handleRemoveStore)
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", s.handleListUnits)
			r.Post("/", s.handleAddUnit)
			r.Delete("/{name}", s.handleRemoveUnit)
		})
	})
}

// requireAuth enforces basic auth when credentials are configured
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.Username == "" && s.auth.Password == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != s.auth.Username || pass != s.auth.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Scanner"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
