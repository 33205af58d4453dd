// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amoura-app/amoura-backend/internal/common/database"
	"github.com/amoura-app/amoura-backend/internal/config"
	"github.com/amoura-app/amoura-backend/internal/identity"
	"github.com/amoura-app/amoura-backend/internal/questionnaire"
	"github.com/amoura-app/amoura-backend/internal/swipe"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Amoura Matchmaking API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	log.Println("✅ Configuration loaded")

	// 3. Validate configuration
	log.Println("\n✔️  Step 3: Validating configuration...")
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 4. Connect to PostgreSQL
	log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("❌ Failed to ping PostgreSQL:", err)
	}
	log.Println("✅ Connected to PostgreSQL successfully")

	// 5. Connect to Redis (optional)
	log.Println("\n📮 Step 5: Connecting to Redis...")
	var redisClient *redis.Client

	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v, continuing without Redis", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 6. Run database migrations
	log.Println("\n🔨 Step 6: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 7. Initialize Identity module
	log.Println("\n🔐 Step 7: Initializing identity module...")

	identityRepo := identity.NewPostgresRepository(db)
	identityService := identity.NewService(identityRepo, redisClient, &identity.Config{
		JWTSecret:          cfg.JWTSecret,
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		BCryptCost:         cfg.BCryptCost,
	})
	identityHandler := identity.NewHandler(identityService)
	authMiddleware := identity.NewMiddleware(identityService)

	log.Println("✅ Identity module initialized")

	// 8. Initialize Questionnaire module
	log.Println("\n📊 Step 8: Initializing questionnaire module...")

	questionnaireRepo := questionnaire.NewPostgresRepository(db)
	directory := &directoryAdapter{users: identityService}
	engine := questionnaire.NewEngine(questionnaireRepo, directory, cfg.CandidateSampling)

	scoreCache := questionnaire.NewScoreCache(redisClient, cfg.ScoreCacheTTL)
	if redisClient == nil {
		log.Println("   ⚠️  Score cache disabled (no Redis)")
	} else {
		log.Println("   ✅ Score cache enabled")
	}

	questionnaireService := questionnaire.NewService(questionnaireRepo, engine, directory, scoreCache)
	questionnaireHandler := questionnaire.NewHandler(questionnaireService, questionnaire.HandlerConfig{
		MinCompatibility: cfg.MinCompatibility,
		MatchLimit:       cfg.MatchLimit,
	})

	// Keep the complete-profiles gauge fresh and sweep the score cache.
	questionnaireScheduler := questionnaire.NewScheduler(questionnaireRepo, scoreCache)
	go questionnaireScheduler.Start(context.Background())

	log.Println("✅ Questionnaire module initialized")

	// 9. Initialize Swipe module
	log.Println("\n💘 Step 9: Initializing swipe module...")

	hub := swipe.NewHub()
	go hub.Run()
	log.Println("   ✅ WebSocket hub started")

	matchPolicy := swipe.NewRandomPolicy(cfg.LikeMatchChance, cfg.SuperLikeChance)
	swipeService := swipe.NewService(questionnaireService, hub, matchPolicy, swipe.Config{
		MinCompatibility:   cfg.MinCompatibility,
		BatchLimit:         cfg.MatchLimit,
		SuperLikeAllowance: cfg.SuperLikeAllowance,
	})
	swipeHandler := swipe.NewHandler(swipeService)

	log.Println("✅ Swipe module initialized")

	// 10. Setup routes
	log.Println("\n🛣️  Step 10: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	identity.RegisterRoutes(router, identityHandler, authMiddleware)
	log.Println("   ✅ Identity routes registered")

	questionnaire.RegisterRoutes(router, questionnaireHandler, authMiddleware)
	log.Println("   ✅ Questionnaire routes registered")

	swipe.RegisterRoutes(router, swipeHandler, hub, authMiddleware)
	log.Println("   ✅ Swipe routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 11. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// directoryAdapter narrows the identity service to the directory contract
// the questionnaire engine depends on.
type directoryAdapter struct {
	users identity.Service
}

func (d *directoryAdapter) IsActive(ctx context.Context, userID int64) (bool, error) {
	return d.users.IsActive(ctx, userID)
}

func (d *directoryAdapter) GetUser(ctx context.Context, userID int64) (*identity.UserInfo, error) {
	user, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Info(), nil
}

var startTime = time.Now()

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			username VARCHAR(100) UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			deactivated_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS questionnaire_responses (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			responses JSONB NOT NULL DEFAULT '{}',
			values_scores JSONB NOT NULL DEFAULT '[]',
			lifestyle_scores JSONB NOT NULL DEFAULT '[]',
			interests_scores JSONB NOT NULL DEFAULT '[]',
			personality_scores JSONB NOT NULL DEFAULT '[]',
			communication_scores JSONB NOT NULL DEFAULT '[]',
			overall_score INTEGER NOT NULL DEFAULT 0,
			questionnaire_version VARCHAR(50) NOT NULL DEFAULT '',
			questionnaire_type VARCHAR(20) NOT NULL DEFAULT 'basic',
			questionnaire_language VARCHAR(10) NOT NULL DEFAULT 'en',
			completion_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP WITH TIME ZONE,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_active ON users(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_complete ON questionnaire_responses(is_complete) WHERE is_complete`,
		`CREATE INDEX IF NOT EXISTS idx_responses_completed_at ON questionnaire_responses(completed_at DESC)`,
	}

	for i, migration := range migrations {
		log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
