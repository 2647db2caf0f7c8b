package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	RenderConfig
	BlobConfig
	FrontEndConfig
}

// RenderConfig holds the PDF preview settings
type RenderConfig struct {
	PDFBackend       string
	PDFWorkers       int
	RenderScale      float64
	ThumbnailWidth   int
	MaxSurfacePixels int
}

// BlobConfig holds the object URL store settings
type BlobConfig struct {
	BlobURLPrefix string
	BlobMaxAge    time.Duration
	SweepInterval time.Duration
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ReviewPageSize int
	ServerAPIURL   string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil || floatVal <= 0 {
		return defaultValue
	}
	return floatVal
}

// getEnvDuration gets a duration environment variable (e.g. "30m") with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	serverConfigLive := loadServerConfig()

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)
	logger.Info("Render configuration loaded",
		"backend", serverConfigLive.PDFBackend,
		"workers", serverConfigLive.PDFWorkers,
		"scale", serverConfigLive.RenderScale,
		"thumbnailWidth", serverConfigLive.ThumbnailWidth)
	if serverConfigLive.BlobMaxAge > 0 {
		logger.Info("Blob sweeping enabled", "maxAge", serverConfigLive.BlobMaxAge, "interval", serverConfigLive.SweepInterval)
	}

	fmt.Println("\n========================================")
	fmt.Println("   cvpreview - Resume Review Service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "cvpreview.log"))
	fmt.Println("Initializing...")

	return serverConfigLive, logger
}

// loadServerConfig reads every server setting from the environment
func loadServerConfig() ServerConfig {
	serverConfigLive := ServerConfig{}

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "cvpreview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "databases/cvpreview.sqlite")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	// Rendering configuration
	serverConfigLive.PDFBackend = getEnv("PDF_BACKEND", "pdfium")
	serverConfigLive.PDFWorkers = getEnvInt("PDF_WORKERS", 2)
	serverConfigLive.RenderScale = getEnvFloat("RENDER_SCALE", 2.0)
	serverConfigLive.ThumbnailWidth = getEnvInt("THUMBNAIL_WIDTH", 0)
	serverConfigLive.MaxSurfacePixels = getEnvInt("MAX_SURFACE_PIXELS", 0)

	// Object URL configuration
	serverConfigLive.BlobURLPrefix = getEnv("BLOB_URL_PREFIX", "/blob/")
	serverConfigLive.BlobMaxAge = getEnvDuration("BLOB_MAX_AGE", 0)
	serverConfigLive.SweepInterval = getEnvDuration("BLOB_SWEEP_INTERVAL", 5*time.Minute)

	serverConfigLive.FrontEndConfig = loadFrontEndConfig("")
	return serverConfigLive
}

// loadFrontEndConfig reads the settings shared with the web UI
func loadFrontEndConfig(defaultAPIURL string) FrontEndConfig {
	return FrontEndConfig{
		ReviewPageSize: getEnvInt("REVIEW_PAGE_SIZE", 20),
		ServerAPIURL:   getEnv("SERVER_API_URL", defaultAPIURL),
	}
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	_ = godotenv.Load("frontend.env")

	logger := setupLogging()
	Logger = logger

	frontendConfig := loadFrontEndConfig("http://localhost:8000")

	logger.Info("Frontend configuration loaded",
		"apiURL", frontendConfig.ServerAPIURL,
		"reviewPageSize", frontendConfig.ReviewPageSize)

	return frontendConfig, logger
}

// parseLevel maps LOG_LEVEL values onto slog levels, defaulting to debug
func parseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	handlerOptions := &slog.HandlerOptions{Level: parseLevel(getEnv("LOG_LEVEL", "debug"))}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "cvpreview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
