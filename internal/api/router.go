package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arthasutra/backend/internal/api/handlers"
	"github.com/arthasutra/backend/pkg/logger"
)

// NewRouter wires every endpoint onto the mux router.
func NewRouter(
	portfolioHandler *handlers.PortfolioHandler,
	dataHandler *handlers.DataHandler,
	feedsHandler *handlers.FeedsHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthCheckHandler).Methods("GET")

	// Portfolio endpoints
	r.HandleFunc("/portfolios", portfolioHandler.Create).Methods("POST")
	r.HandleFunc("/portfolios", portfolioHandler.List).Methods("GET")
	r.HandleFunc("/portfolios/{id:[0-9]+}", portfolioHandler.Delete).Methods("DELETE")
	r.HandleFunc("/portfolios/{id:[0-9]+}/import-csv", portfolioHandler.ImportCSV).Methods("POST")
	r.HandleFunc("/portfolios/{id:[0-9]+}/positions", portfolioHandler.Positions).Methods("GET")
	r.HandleFunc("/portfolios/{id:[0-9]+}/dashboard", portfolioHandler.Dashboard).Methods("GET")

	// Price data endpoints
	r.HandleFunc("/data/prices-eod/import-csv", dataHandler.ImportPricesCSV).Methods("POST")
	r.HandleFunc("/data/prices-eod/fetch", dataHandler.FetchPrices).Methods("POST")

	// Feed diagnostics
	r.HandleFunc("/feeds/stats", feedsHandler.Stats).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "arthasutra-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
