package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/smartflow/backend/src/config"
	"github.com/username/smartflow/backend/src/database"
	"github.com/username/smartflow/backend/src/extraction"
	"github.com/username/smartflow/backend/src/handlers"
	"github.com/username/smartflow/backend/src/integrity"
	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/logic"
	"github.com/username/smartflow/backend/src/ml"
	"github.com/username/smartflow/backend/src/normalizer"
	"github.com/username/smartflow/backend/src/pipeline"
	"github.com/username/smartflow/backend/src/store"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("SmartFlow backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	if err := database.SeedReferenceData(); err != nil {
		logger.L.Error("Failed to seed reference data", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing anomaly model...", "path", config.Cfg.AnomalyModelPath)
	detector, err := ml.NewDetector(config.Cfg.AnomalyModelPath)
	if err != nil {
		logger.L.Error("Failed to initialize anomaly model", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(handlers.DefaultCacheExpiration, handlers.CacheCleanupInterval)

	logger.L.Info("Initializing pipeline components...")
	sqlStore := store.NewSQLiteStore(database.DB)

	entityNormalizer, err := normalizer.NewNormalizer(sqlStore, config.Cfg.FuzzyMatchCutoff)
	if err != nil {
		logger.L.Error("Failed to initialize entity normalizer", "error", err)
		os.Exit(1)
	}
	resolver := integrity.NewResolver(entityNormalizer, sqlStore)
	ruleEngine := logic.NewEngine(sqlStore)

	extractor, err := extraction.GetExtractor(sqlStore)
	if err != nil {
		logger.L.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}

	router := pipeline.NewTransactionRouter(extractor, resolver, ruleEngine, detector, sqlStore, sqlStore)

	pipelineHandler := handlers.NewPipelineHandler(router, reportCache)
	txHandler := handlers.NewTransactionHandler(sqlStore, reportCache)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/process", pipelineHandler.HandleProcess)
	apiRouter.HandleFunc("GET /api/transactions", txHandler.HandleGetRecentTransactions)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "online", "system": "SmartFlow v1.5"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
